package listing

import "context"

type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByListingID(ctx context.Context, listingID uint64) (*Listing, error)
	// GetByListingIDForUpdate locks the row; only meaningful inside a
	// unit-of-work transaction.
	GetByListingIDForUpdate(ctx context.Context, listingID uint64) (*Listing, error)
	// GetByReleaseTxRef finds the listing whose withdrawal was anchored to
	// the given release tx ref.
	GetByReleaseTxRef(ctx context.Context, ref string) (*Listing, error)
	List(ctx context.Context) ([]Listing, error)
	Save(ctx context.Context, l *Listing) error
}

type EventRepository interface {
	Create(ctx context.Context, e *FundingEvent) error
	GetByChainTxRef(ctx context.Context, ref string) (*FundingEvent, error)
	ListByListingID(ctx context.Context, listingID uint64) ([]FundingEvent, error)
	Save(ctx context.Context, e *FundingEvent) error
}
