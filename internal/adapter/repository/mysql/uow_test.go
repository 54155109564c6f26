package mysql

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	domain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/domain/uow"
	"gaplend-backend/pkg/amount"
)

// openUowTestDB migrates both tables, so UoW can orchestrate both repos.
func openUowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openTestDB(t)
	if err := db.AutoMigrate(&eventSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

// ----------------------------- Tests -----------------------------

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openUowTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	listingRepo := NewListingRepository(db)
	eventRepo := NewEventRepository(db)

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		l := makeListing(10, "0xdddddddddddddddddddddddddddddddddddddddd")
		if err := r.Listings.Create(ctx, l); err != nil {
			return err
		}
		return r.Events.Create(ctx, makeEvent(10, "0xc0ffee0000000000000000000000000000000000000000000000000000000001"))
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	// Verify post-commit visibility
	if _, err := listingRepo.GetByListingID(ctx, 10); err != nil {
		t.Fatalf("listing not visible after commit: %v", err)
	}
	if _, err := eventRepo.GetByChainTxRef(ctx, "0xc0ffee0000000000000000000000000000000000000000000000000000000001"); err != nil {
		t.Fatalf("event not visible after commit: %v", err)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := openUowTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)
	listingRepo := NewListingRepository(db)

	boom := errors.New("boom")
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Listings.Create(ctx, makeListing(11, "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if _, err := listingRepo.GetByListingID(ctx, 11); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("listing must not survive rollback, got %v", err)
	}
}

func TestGormUoW_WithinListingTx_PassesLockedRow(t *testing.T) {
	db := openUowTestDB(t)
	ctx := context.Background()
	guow := NewGormUoW(db)
	listingRepo := NewListingRepository(db)

	seed := makeListing(12, "0xffffffffffffffffffffffffffffffffffffffff")
	if err := listingRepo.Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := guow.WithinListingTx(ctx, 12, func(r uow.Repos, l *domain.Listing) error {
		if l.ListingID != 12 {
			t.Fatalf("wrong listing passed in: %+v", l)
		}
		l.Funded = l.Funded.Add(amount.MustFromString("100000000000000000000"))
		l.State = domain.StateOpen
		return r.Listings.Save(ctx, l)
	})
	if err != nil {
		t.Fatalf("WithinListingTx: %v", err)
	}

	got, err := listingRepo.GetByListingID(ctx, 12)
	if err != nil {
		t.Fatalf("GetByListingID: %v", err)
	}
	if got.Funded.String() != "100000000000000000000" {
		t.Fatalf("funded=%s", got.Funded.String())
	}
}

func TestGormUoW_WithinListingTx_UnknownListing(t *testing.T) {
	db := openUowTestDB(t)
	guow := NewGormUoW(db)

	err := guow.WithinListingTx(context.Background(), 999, func(r uow.Repos, l *domain.Listing) error {
		t.Fatal("callback must not run for unknown listing")
		return nil
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
