package funding

import (
	"errors"
	"fmt"
	"time"

	"gaplend-backend/internal/domain/chain"
	"gaplend-backend/internal/domain/listing"
	"gaplend-backend/pkg/amount"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnsupportedCurrency = errors.New("unsupported settlement currency")
	ErrListingClosed       = errors.New("listing is not open for funding")
	ErrExceedsRemaining    = errors.New("amount exceeds remaining principal")
	// ErrLedgerRetryExhausted: the chain transfer is final but the ledger
	// could not be updated. The funding event (if persisted) plus the tx
	// ref let a later settlement poll finish the accounting.
	ErrLedgerRetryExhausted = errors.New("ledger update failed after retries")
)

// SettlementPendingError: the transfer was submitted but finality was
// not observed in time. Callers must poll the settlement status with the
// ref; re-submitting risks a duplicate transfer.
type SettlementPendingError struct {
	TxRef chain.TxRef
}

func (e *SettlementPendingError) Error() string {
	return fmt.Sprintf("settlement pending, poll tx %s", e.TxRef)
}

// Policy bounds the reconciler's retry behavior.
type Policy struct {
	// ReceiptPolls: how many status lookups to attempt after a chain
	// timeout before surfacing settlement-pending.
	ReceiptPolls        int
	ReceiptPollInterval time.Duration
	// LedgerRetries: attempts to commit the off-chain leg after the chain
	// leg is final. Backoff doubles from LedgerRetryBase.
	LedgerRetries   int
	LedgerRetryBase time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ReceiptPolls:        3,
		ReceiptPollInterval: 2 * time.Second,
		LedgerRetries:       5,
		LedgerRetryBase:     100 * time.Millisecond,
	}
}

type FundInput struct {
	ListingID uint64
	Investor  string
	Amount    amount.Amount
	Currency  chain.Currency
}

type FundResult struct {
	ChainTxRef string        `json:"chain_tx_ref"`
	Funded     amount.Amount `json:"funded"`
	Accepted   amount.Amount `json:"accepted"`
	Excess     amount.Amount `json:"excess"`
	Partial    bool          `json:"partial"`
	State      listing.State `json:"state"`
}

type WithdrawInput struct {
	ListingID uint64
	Investor  string
}

type WithdrawResult struct {
	ChainTxRef string        `json:"chain_tx_ref"`
	State      listing.State `json:"state"`
}

type SettlementStatus struct {
	ChainTxRef  string `json:"chain_tx_ref"`
	ChainStatus string `json:"chain_status"`
	// Ledger: none | pending | recorded | failed
	Ledger string      `json:"ledger"`
	Result *FundResult `json:"result,omitempty"`
}
