package mysql

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	domain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/pkg/amount"
	"gaplend-backend/pkg/id"
)

type eventSQLite struct {
	ID         uint64    `gorm:"primaryKey;column:id"`
	EventID    string    `gorm:"column:event_id;uniqueIndex"`
	ListingID  uint64    `gorm:"column:listing_id;index"`
	Investor   string    `gorm:"column:investor"`
	Amount     string    `gorm:"type:text;column:amount"`
	Accepted   string    `gorm:"type:text;column:accepted"`
	Excess     string    `gorm:"type:text;column:excess"`
	Currency   string    `gorm:"column:currency"`
	ChainTxRef string    `gorm:"column:chain_tx_ref;uniqueIndex"`
	Status     string    `gorm:"type:text;column:status"`
	Partial    bool      `gorm:"column:partial"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (eventSQLite) TableName() string { return "funding_events" }

func openEventTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openTestDB(t)
	if err := db.AutoMigrate(&eventSQLite{}); err != nil {
		t.Fatalf("auto-migrate events: %v", err)
	}
	return db
}

func makeEvent(listingID uint64, ref string) *domain.FundingEvent {
	return &domain.FundingEvent{
		EventID:    id.NewID32(),
		ListingID:  listingID,
		Investor:   "0x1111111111111111111111111111111111111111",
		Amount:     amount.New(700),
		Accepted:   amount.New(700),
		Excess:     amount.New(0),
		Currency:   "NATIVE",
		ChainTxRef: ref,
		Status:     domain.EventRecorded,
	}
}

func TestEventCreateAndGetByChainTxRef(t *testing.T) {
	db := openEventTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	const ref = "0xf00d000000000000000000000000000000000000000000000000000000000001"
	if err := repo.Create(ctx, makeEvent(1, ref)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByChainTxRef(ctx, ref)
	if err != nil {
		t.Fatalf("GetByChainTxRef: %v", err)
	}
	if got.ListingID != 1 || got.Accepted.String() != "700" {
		t.Errorf("unexpected event: %+v", got)
	}
}

// Replaying the same chain_tx_ref must not produce a second row.
func TestEventCreate_IdempotentOnChainTxRef(t *testing.T) {
	db := openEventTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	const ref = "0xf00d000000000000000000000000000000000000000000000000000000000002"
	if err := repo.Create(ctx, makeEvent(2, ref)); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := repo.Create(ctx, makeEvent(2, ref)); err != nil {
		t.Fatalf("replayed Create must be a no-op, got: %v", err)
	}

	all, err := repo.ListByListingID(ctx, 2)
	if err != nil {
		t.Fatalf("ListByListingID: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want exactly one event, got %d", len(all))
	}
}

func TestEventGetByChainTxRef_NotFound(t *testing.T) {
	db := openEventTestDB(t)
	repo := NewEventRepository(db)

	_, err := repo.GetByChainTxRef(context.Background(), "0xdead")
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("want gorm.ErrRecordNotFound, got %v", err)
	}
}
