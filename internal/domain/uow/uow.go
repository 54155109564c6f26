package uow

import (
	"context"

	"gaplend-backend/internal/domain/listing"
)

type Repos struct {
	Listings listing.Repository
	Events   listing.EventRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the listing row first, then pass it in. This lock
	// is the per-listing synchronization point for funded updates.
	WithinListingTx(ctx context.Context, listingID uint64, fn func(r Repos, l *listing.Listing) error) error
}
