package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	listingDomain "gaplend-backend/internal/domain/listing"
)

type ListingRepository struct{ db *gorm.DB }

func NewListingRepository(db *gorm.DB) *ListingRepository { return &ListingRepository{db: db} }

func (r *ListingRepository) Create(ctx context.Context, l *listingDomain.Listing) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *ListingRepository) Save(ctx context.Context, l *listingDomain.Listing) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *ListingRepository) GetByListingID(ctx context.Context, listingID uint64) (*listingDomain.Listing, error) {
	var out listingDomain.Listing
	res := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, listingDomain.ErrNotFound
	}
	return &out, res.Error
}

// GetByListingIDForUpdate takes a row lock; inside a transaction this
// serializes concurrent funded updates for the same listing.
func (r *ListingRepository) GetByListingIDForUpdate(ctx context.Context, listingID uint64) (*listingDomain.Listing, error) {
	var out listingDomain.Listing
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("listing_id = ?", listingID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, listingDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *ListingRepository) GetByReleaseTxRef(ctx context.Context, ref string) (*listingDomain.Listing, error) {
	var out listingDomain.Listing
	res := r.db.WithContext(ctx).Where("release_tx_ref = ?", ref).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, listingDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *ListingRepository) List(ctx context.Context) ([]listingDomain.Listing, error) {
	var out []listingDomain.Listing
	res := r.db.WithContext(ctx).Order("listing_id ASC").Find(&out)
	return out, res.Error
}
