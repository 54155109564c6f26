package chainmock

import (
	"context"
	"fmt"
	"sync/atomic"

	domain "gaplend-backend/internal/domain/chain"
	"gaplend-backend/pkg/amount"
)

// Gateway is a function-backed mock that satisfies domain.Gateway.
// Unfilled Transfer/Release succeed with a generated ref so happy-path
// tests need no setup.
type Gateway struct {
	TransferFn func(ctx context.Context, listingID uint64, amt amount.Amount, cur domain.Currency) (domain.TxRef, error)
	ReleaseFn  func(ctx context.Context, listingID uint64) (domain.TxRef, error)
	ReceiptFn  func(ctx context.Context, ref domain.TxRef) (domain.TxStatus, error)

	seq atomic.Uint64
}

var _ domain.Gateway = (*Gateway)(nil)

// NextRef generates a unique fake tx hash.
func (m *Gateway) NextRef() domain.TxRef {
	return domain.TxRef(fmt.Sprintf("0x%064x", m.seq.Add(1)))
}

func (m *Gateway) Transfer(ctx context.Context, listingID uint64, amt amount.Amount, cur domain.Currency) (domain.TxRef, error) {
	if m.TransferFn != nil {
		return m.TransferFn(ctx, listingID, amt, cur)
	}
	return m.NextRef(), nil
}

func (m *Gateway) Release(ctx context.Context, listingID uint64) (domain.TxRef, error) {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, listingID)
	}
	return m.NextRef(), nil
}

func (m *Gateway) Receipt(ctx context.Context, ref domain.TxRef) (domain.TxStatus, error) {
	if m.ReceiptFn != nil {
		return m.ReceiptFn(ctx, ref)
	}
	return domain.StatusConfirmed, nil
}
