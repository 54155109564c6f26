package mysql

import (
	"context"

	"gorm.io/gorm"

	"gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := uow.Repos{
			Listings: &ListingRepository{db: tx},
			Events:   &EventRepository{db: tx},
		}
		return fn(r)
	})
}

func (u *GormUoW) WithinListingTx(ctx context.Context, listingID uint64, fn func(r uow.Repos, l *listing.Listing) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := uow.Repos{
			Listings: &ListingRepository{db: tx},
			Events:   &EventRepository{db: tx},
		}
		// lock the listing row up-front to prevent races
		l, err := r.Listings.GetByListingIDForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
