package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	listingDomain "gaplend-backend/internal/domain/listing"
)

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

// Create inserts the event; the unique index on chain_tx_ref makes a
// replayed insert a no-op instead of a double-count.
func (r *EventRepository) Create(ctx context.Context, e *listingDomain.FundingEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chain_tx_ref"}},
			DoNothing: true,
		}).
		Create(e).Error
}

func (r *EventRepository) Save(ctx context.Context, e *listingDomain.FundingEvent) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *EventRepository) GetByChainTxRef(ctx context.Context, ref string) (*listingDomain.FundingEvent, error) {
	var out listingDomain.FundingEvent
	res := r.db.WithContext(ctx).Where("chain_tx_ref = ?", ref).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, res.Error
}

func (r *EventRepository) ListByListingID(ctx context.Context, listingID uint64) ([]listingDomain.FundingEvent, error) {
	var out []listingDomain.FundingEvent
	res := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
