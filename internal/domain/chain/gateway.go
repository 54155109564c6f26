// Package chain defines the capability the reconciler consumes from the
// settlement layer. Implementations live under adapter/chain; tests swap
// in a function-backed double.
package chain

import (
	"context"
	"errors"

	"gaplend-backend/pkg/amount"
)

var (
	// ErrChainRejected: the settlement layer refused the transaction
	// (revert, insufficient funds, gas). Safe to treat as no effect.
	ErrChainRejected = errors.New("chain rejected transaction")
	// ErrChainTimeout: finality was not observed within the bounded wait.
	// NOT safe to treat as no effect; the transfer may still confirm.
	// Gateways return the submitted TxRef alongside this error so the
	// caller can reconcile later.
	ErrChainTimeout = errors.New("chain confirmation timed out")
)

// TxRef is an opaque, globally unique settlement-layer transaction
// reference (a 0x-prefixed hash on EVM chains).
type TxRef string

// Currency is a supported settlement asset.
type Currency string

const (
	Native Currency = "NATIVE"
	USDT   Currency = "USDT"
	USDC   Currency = "USDC"
)

func (c Currency) Supported() bool {
	switch c {
	case Native, USDT, USDC:
		return true
	}
	return false
}

// Decimals of the asset's minor unit. The stablecoin mocks the contract
// was deployed against use 6.
func (c Currency) Decimals() int {
	if c == Native {
		return 18
	}
	return 6
}

type TxStatus int

const (
	StatusUnknown TxStatus = iota
	StatusPending
	StatusConfirmed
	StatusReverted
)

func (s TxStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusReverted:
		return "reverted"
	}
	return "unknown"
}

type Gateway interface {
	// Transfer moves amount into the listing's escrow and blocks until one
	// confirmation. On ErrChainTimeout the returned TxRef is still valid.
	Transfer(ctx context.Context, listingID uint64, amt amount.Amount, cur Currency) (TxRef, error)
	// Release pays out principal + accrued interest for the listing.
	Release(ctx context.Context, listingID uint64) (TxRef, error)
	// Receipt reports the current status of a previously submitted
	// transaction; used to resolve ambiguous timeouts.
	Receipt(ctx context.Context, ref TxRef) (TxStatus, error)
}
