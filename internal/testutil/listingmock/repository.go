package listingmock

import (
	"context"

	"gorm.io/gorm"

	domain "gaplend-backend/internal/domain/listing"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only fill in the methods a test needs.
type Repo struct {
	CreateFn                  func(ctx context.Context, l *domain.Listing) error
	GetByListingIDFn          func(ctx context.Context, listingID uint64) (*domain.Listing, error)
	GetByListingIDForUpdateFn func(ctx context.Context, listingID uint64) (*domain.Listing, error)
	GetByReleaseTxRefFn       func(ctx context.Context, ref string) (*domain.Listing, error)
	ListFn                    func(ctx context.Context) ([]domain.Listing, error)
	SaveFn                    func(ctx context.Context, l *domain.Listing) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Listing) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByListingID(ctx context.Context, listingID uint64) (*domain.Listing, error) {
	if m.GetByListingIDFn != nil {
		return m.GetByListingIDFn(ctx, listingID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByListingIDForUpdate(ctx context.Context, listingID uint64) (*domain.Listing, error) {
	if m.GetByListingIDForUpdateFn != nil {
		return m.GetByListingIDForUpdateFn(ctx, listingID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByReleaseTxRef(ctx context.Context, ref string) (*domain.Listing, error) {
	if m.GetByReleaseTxRefFn != nil {
		return m.GetByReleaseTxRefFn(ctx, ref)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) List(ctx context.Context) ([]domain.Listing, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Listing) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

// Events is a function-backed mock for domain.EventRepository.
type Events struct {
	CreateFn          func(ctx context.Context, e *domain.FundingEvent) error
	GetByChainTxRefFn func(ctx context.Context, ref string) (*domain.FundingEvent, error)
	ListByListingIDFn func(ctx context.Context, listingID uint64) ([]domain.FundingEvent, error)
	SaveFn            func(ctx context.Context, e *domain.FundingEvent) error
}

func (m *Events) Create(ctx context.Context, e *domain.FundingEvent) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, e)
	}
	return nil
}

func (m *Events) GetByChainTxRef(ctx context.Context, ref string) (*domain.FundingEvent, error) {
	if m.GetByChainTxRefFn != nil {
		return m.GetByChainTxRefFn(ctx, ref)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Events) ListByListingID(ctx context.Context, listingID uint64) ([]domain.FundingEvent, error) {
	if m.ListByListingIDFn != nil {
		return m.ListByListingIDFn(ctx, listingID)
	}
	return nil, nil
}

func (m *Events) Save(ctx context.Context, e *domain.FundingEvent) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, e)
	}
	return nil
}
