package uowmock

import (
	"context"
	"errors"

	"gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn        func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinListingTxFn func(ctx context.Context, listingID uint64, fn func(r uow.Repos, l *listing.Listing) error) error
}

func New() *UoW { return &UoW{} }

func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinListingTx(ctx context.Context, listingID uint64, fn func(r uow.Repos, l *listing.Listing) error) error {
	if m.WithinListingTxFn != nil {
		return m.WithinListingTxFn(ctx, listingID, fn)
	}
	return errUnimplemented
}
