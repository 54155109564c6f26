package listing

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"gaplend-backend/pkg/amount"
)

var (
	ErrNotFound          = errors.New("listing not found")
	ErrAlreadyWithdrawn  = errors.New("listing already withdrawn")
	ErrInvalidTransition = errors.New("invalid listing state transition")
)

type State string

const (
	StateCreated   State = "created"
	StateOpen      State = "open"
	StateFunded    State = "funded"
	StateMatured   State = "matured"
	StateWithdrawn State = "withdrawn"
)

// Listing is a financing request. Principal, rate bounds and maturity are
// immutable after creation; funded only moves through the repository's
// conditional increment.
type Listing struct {
	ID          uint64         `gorm:"primaryKey;column:id" json:"-"`
	ListingID   uint64         `gorm:"uniqueIndex:ux_listings_listing_id" json:"listing_id"`
	Borrower    string         `gorm:"size:42;index:idx_listings_borrower" json:"borrower"`
	Principal   amount.Amount  `gorm:"type:decimal(38,0)" json:"principal"`
	StartBps    int            `json:"start_bps"`
	MinBps      int            `json:"min_bps"`
	Maturity    int64          `json:"maturity"`
	Funded      amount.Amount  `gorm:"type:decimal(38,0)" json:"funded"`
	State       State          `gorm:"size:16;default:'created'" json:"state"`
	NeedsReview bool           `gorm:"default:false" json:"needs_review"`
	// ReleaseTxRef anchors an in-flight withdrawal: once a release is
	// submitted its ref is persisted here so a retried withdraw reconciles
	// against the chain instead of submitting a second release.
	ReleaseTxRef string         `gorm:"size:66;index:idx_listings_release_tx_ref" json:"release_tx_ref,omitempty"`
	Category     string         `gorm:"size:32" json:"category,omitempty"`
	Title        string         `gorm:"size:128" json:"title,omitempty"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	ImageURL     string         `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Listing) TableName() string { return "listings" }

// StateAt derives the observable state: maturity flips an un-withdrawn
// listing to matured regardless of the stored projection, so readers
// never see a stale pre-maturity state.
func (l *Listing) StateAt(now time.Time) State {
	if l.State == StateWithdrawn {
		return StateWithdrawn
	}
	if now.Unix() >= l.Maturity {
		return StateMatured
	}
	if l.Funded.Cmp(l.Principal) >= 0 && l.Principal.Sign() > 0 {
		return StateFunded
	}
	if l.Funded.Sign() > 0 {
		return StateOpen
	}
	return l.State
}

// Remaining is the capacity left before funded reaches principal.
func (l *Listing) Remaining() amount.Amount {
	return l.Principal.Sub(l.Funded)
}

// FundingEvent is the audit record for one fund call. ChainTxRef carries
// the unique index that makes ledger application idempotent: a retried
// reconciliation upserts against it instead of double-counting.
type FundingEvent struct {
	ID         uint64        `gorm:"primaryKey;column:id" json:"-"`
	EventID    string        `gorm:"type:char(32);uniqueIndex:ux_events_event_id" json:"event_id"`
	ListingID  uint64        `gorm:"index:idx_events_listing" json:"listing_id"`
	Investor   string        `gorm:"size:42" json:"investor"`
	Amount     amount.Amount `gorm:"type:decimal(38,0)" json:"amount"`
	Accepted   amount.Amount `gorm:"type:decimal(38,0)" json:"accepted"`
	Excess     amount.Amount `gorm:"type:decimal(38,0)" json:"excess"`
	Currency   string        `gorm:"size:8" json:"currency"`
	ChainTxRef string        `gorm:"size:66;uniqueIndex:ux_events_chain_tx_ref" json:"chain_tx_ref"`
	Status     EventStatus   `gorm:"size:16;default:'pending'" json:"status"`
	Partial    bool          `gorm:"default:false" json:"partial"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FundingEvent) TableName() string { return "funding_events" }

// EventStatus tracks the off-chain leg only. The on-chain transfer is
// already final by the time an event leaves pending.
type EventStatus string

const (
	// EventPending: chain transfer submitted (and possibly confirmed) but
	// the ledger increment has not committed yet.
	EventPending EventStatus = "pending"
	// EventRecorded: ledger increment committed; Accepted/Excess are final.
	EventRecorded EventStatus = "recorded"
	// EventFailed: the transfer reverted on-chain; nothing was accepted.
	EventFailed EventStatus = "failed"
)
