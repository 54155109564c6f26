// Package funding implements the reconciliation core: it moves a listing
// through its funding lifecycle by combining an irreversible on-chain
// transfer with the mutable off-chain ledger, and owns the
// partial-failure policy between the two.
package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gaplend-backend/internal/domain/chain"
	"gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/domain/uow"
	"gaplend-backend/pkg/amount"
	"gaplend-backend/pkg/id"
)

type Usecase struct {
	listings listing.Repository
	events   listing.EventRepository
	gateway  chain.Gateway
	uow      uow.UnitOfWork
	policy   Policy
}

func NewUsecase(listings listing.Repository, events listing.EventRepository, gw chain.Gateway, tx uow.UnitOfWork, p Policy) *Usecase {
	return &Usecase{listings: listings, events: events, gateway: gw, uow: tx, policy: p}
}

// Fund runs Validated → ChainPending → ChainConfirmed → LedgerApplied.
// The chain transfer must be final before the ledger is touched; the
// ledger is never optimistically incremented ahead of settlement.
func (u *Usecase) Fund(ctx context.Context, in FundInput) (*FundResult, error) {
	if in.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !in.Currency.Supported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, in.Currency)
	}

	// Best-effort pre-check. Not authoritative: the row lock inside
	// applyLedger is where concurrent funders serialize.
	l, err := u.listings.GetByListingID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch st := l.StateAt(now); st {
	case listing.StateWithdrawn:
		return nil, listing.ErrAlreadyWithdrawn
	case listing.StateMatured, listing.StateFunded:
		return nil, fmt.Errorf("%w: state %s", ErrListingClosed, st)
	}
	if in.Amount.Cmp(l.Remaining()) > 0 {
		return nil, fmt.Errorf("%w: remaining %s", ErrExceedsRemaining, l.Remaining())
	}

	ref, err := u.gateway.Transfer(ctx, in.ListingID, in.Amount, in.Currency)
	if err != nil {
		if errors.Is(err, chain.ErrChainTimeout) && ref != "" {
			return u.resolveAmbiguous(ctx, in, ref)
		}
		// ChainRejected (or submit failure): no custody moved, clean error.
		return nil, err
	}

	return u.applyLedger(ctx, in, ref)
}

// resolveAmbiguous handles a transfer whose finality is unknown: park a
// pending audit row keyed by the tx ref, then poll the receipt a bounded
// number of times. If confirmation shows up the ledger is applied here;
// otherwise the caller gets settlement-pending and polls.
func (u *Usecase) resolveAmbiguous(ctx context.Context, in FundInput, ref chain.TxRef) (*FundResult, error) {
	if err := u.recordPending(ctx, in, ref); err != nil {
		logrus.Errorf("funding: could not persist pending event for tx %s: %v", ref, err)
	}

	for i := 0; i < u.policy.ReceiptPolls; i++ {
		if err := sleep(ctx, u.policy.ReceiptPollInterval); err != nil {
			return nil, &SettlementPendingError{TxRef: ref}
		}
		st, err := u.gateway.Receipt(ctx, ref)
		if err != nil {
			logrus.Warnf("funding: receipt poll %d for tx %s: %v", i+1, ref, err)
			continue
		}
		switch st {
		case chain.StatusConfirmed:
			return u.applyLedger(ctx, in, ref)
		case chain.StatusReverted:
			u.markEventFailed(ctx, ref)
			return nil, fmt.Errorf("%w: tx %s reverted", chain.ErrChainRejected, ref)
		}
	}
	return nil, &SettlementPendingError{TxRef: ref}
}

// Withdraw releases principal + accrued interest once the listing is
// matured (or fully funded, for the borrower-initiated payout) and marks
// the terminal state. The release tx ref is anchored on the listing row
// before release finality is known, so a retried withdraw reconciles
// the recorded ref against the chain instead of releasing twice.
func (u *Usecase) Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawResult, error) {
	l, err := u.listings.GetByListingID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch st := l.StateAt(now); st {
	case listing.StateWithdrawn:
		return nil, listing.ErrAlreadyWithdrawn
	case listing.StateMatured, listing.StateFunded:
		// eligible
	default:
		return nil, fmt.Errorf("%w: state %s not eligible for withdrawal", listing.ErrInvalidTransition, st)
	}
	if l.ReleaseTxRef != "" {
		return u.reconcileRelease(ctx, in.ListingID, chain.TxRef(l.ReleaseTxRef))
	}

	ref, err := u.gateway.Release(ctx, in.ListingID)
	if err != nil {
		if errors.Is(err, chain.ErrChainTimeout) && ref != "" {
			return u.resolveAmbiguousRelease(ctx, in, ref)
		}
		return nil, err
	}

	if err := u.markWithdrawn(ctx, in.ListingID, ref); err != nil {
		if errors.Is(err, ErrLedgerRetryExhausted) {
			// custody already released; keep the anchor so the settlement
			// poll can finish the state transition later
			u.recordReleaseRef(ctx, in.ListingID, ref)
		}
		return nil, err
	}
	return &WithdrawResult{ChainTxRef: string(ref), State: listing.StateWithdrawn}, nil
}

// reconcileRelease resumes a withdrawal whose release was already
// submitted: the anchored ref is checked against the chain rather than
// submitting a second release.
func (u *Usecase) reconcileRelease(ctx context.Context, listingID uint64, ref chain.TxRef) (*WithdrawResult, error) {
	st, err := u.gateway.Receipt(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch st {
	case chain.StatusConfirmed:
		if err := u.markWithdrawn(ctx, listingID, ref); err != nil {
			return nil, err
		}
		return &WithdrawResult{ChainTxRef: string(ref), State: listing.StateWithdrawn}, nil
	case chain.StatusReverted:
		// nothing was released; drop the anchor so the next withdraw may
		// submit a fresh release
		u.clearReleaseRef(ctx, listingID, ref)
		return nil, fmt.Errorf("%w: release tx %s reverted", chain.ErrChainRejected, ref)
	}
	return nil, &SettlementPendingError{TxRef: ref}
}

// resolveAmbiguousRelease handles a release whose finality is unknown:
// anchor the ref on the listing first, then poll the receipt a bounded
// number of times before surfacing settlement-pending.
func (u *Usecase) resolveAmbiguousRelease(ctx context.Context, in WithdrawInput, ref chain.TxRef) (*WithdrawResult, error) {
	u.recordReleaseRef(ctx, in.ListingID, ref)

	for i := 0; i < u.policy.ReceiptPolls; i++ {
		if err := sleep(ctx, u.policy.ReceiptPollInterval); err != nil {
			return nil, &SettlementPendingError{TxRef: ref}
		}
		st, err := u.gateway.Receipt(ctx, ref)
		if err != nil {
			logrus.Warnf("funding: release receipt poll %d for tx %s: %v", i+1, ref, err)
			continue
		}
		switch st {
		case chain.StatusConfirmed:
			if err := u.markWithdrawn(ctx, in.ListingID, ref); err != nil {
				return nil, err
			}
			return &WithdrawResult{ChainTxRef: string(ref), State: listing.StateWithdrawn}, nil
		case chain.StatusReverted:
			u.clearReleaseRef(ctx, in.ListingID, ref)
			return nil, fmt.Errorf("%w: tx %s reverted", chain.ErrChainRejected, ref)
		}
	}
	return nil, &SettlementPendingError{TxRef: ref}
}

// SettlementStatus resolves an ambiguous settlement for a caller polling
// a tx ref. A confirmed transfer whose event is still pending gets its
// ledger leg applied here, exactly once; a confirmed release whose
// listing is still anchored gets its withdrawn transition finished here.
func (u *Usecase) SettlementStatus(ctx context.Context, ref chain.TxRef) (*SettlementStatus, error) {
	out := &SettlementStatus{ChainTxRef: string(ref), Ledger: "none"}

	ev, err := u.events.GetByChainTxRef(ctx, string(ref))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if ev != nil {
		out.Ledger = string(ev.Status)
	}

	st, err := u.gateway.Receipt(ctx, ref)
	if err != nil {
		return nil, err
	}
	out.ChainStatus = st.String()

	if ev == nil {
		return u.releaseStatus(ctx, ref, st, out)
	}

	switch {
	case ev.Status == listing.EventPending && st == chain.StatusConfirmed:
		res, err := u.applyLedger(ctx, FundInput{
			ListingID: ev.ListingID,
			Investor:  ev.Investor,
			Amount:    ev.Amount,
			Currency:  chain.Currency(ev.Currency),
		}, ref)
		if err != nil {
			return nil, err
		}
		out.Ledger = string(listing.EventRecorded)
		out.Result = res
	case ev.Status == listing.EventPending && st == chain.StatusReverted:
		u.markEventFailed(ctx, ref)
		out.Ledger = string(listing.EventFailed)
	case ev.Status == listing.EventRecorded:
		l, err := u.listings.GetByListingID(ctx, ev.ListingID)
		if err == nil {
			out.Result = resultFrom(l, ev, ref)
		}
	}
	return out, nil
}

// releaseStatus is the withdraw leg of the settlement poll: a ref with
// no funding event may be an anchored release. A confirmed one marks
// the listing withdrawn, a reverted one drops the anchor.
func (u *Usecase) releaseStatus(ctx context.Context, ref chain.TxRef, st chain.TxStatus, out *SettlementStatus) (*SettlementStatus, error) {
	l, err := u.listings.GetByReleaseTxRef(ctx, string(ref))
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}

	switch {
	case l.State == listing.StateWithdrawn:
		out.Ledger = string(listing.EventRecorded)
	case st == chain.StatusConfirmed:
		if err := u.markWithdrawn(ctx, l.ListingID, ref); err != nil {
			return nil, err
		}
		out.Ledger = string(listing.EventRecorded)
	case st == chain.StatusReverted:
		u.clearReleaseRef(ctx, l.ListingID, ref)
		out.Ledger = string(listing.EventFailed)
	default:
		out.Ledger = string(listing.EventPending)
	}
	return out, nil
}

// applyLedger commits the off-chain leg for a final on-chain transfer,
// retrying with exponential backoff: the money already moved, so the
// accounting must eventually follow.
func (u *Usecase) applyLedger(ctx context.Context, in FundInput, ref chain.TxRef) (*FundResult, error) {
	backoff := u.policy.LedgerRetryBase
	var lastErr error
	for attempt := 0; attempt < u.policy.LedgerRetries; attempt++ {
		if attempt > 0 {
			logrus.Warnf("funding: ledger apply retry %d for tx %s: %v", attempt, ref, lastErr)
			if err := sleep(ctx, backoff); err != nil {
				break
			}
			backoff *= 2
		}
		res, err := u.applyOnce(ctx, in, ref)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, listing.ErrNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: tx %s: %v", ErrLedgerRetryExhausted, ref, lastErr)
}

// applyOnce is the atomic conditional increment: under the per-listing
// row lock it accepts up to the remaining capacity, records the excess
// on the event, and flags the listing for review when the two diverge.
// Replays keyed on the tx ref are no-ops.
func (u *Usecase) applyOnce(ctx context.Context, in FundInput, ref chain.TxRef) (*FundResult, error) {
	var res *FundResult
	err := u.uow.WithinListingTx(ctx, in.ListingID, func(r uow.Repos, l *listing.Listing) error {
		ev, err := r.Events.GetByChainTxRef(ctx, string(ref))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if ev != nil && ev.Status == listing.EventRecorded {
			// idempotent replay: funded already moved for this ref
			res = resultFrom(l, ev, ref)
			return nil
		}

		accepted := amount.Min(in.Amount, l.Remaining())
		excess := in.Amount.Sub(accepted)

		l.Funded = l.Funded.Add(accepted)
		if l.Principal.Sign() > 0 && l.Funded.Cmp(l.Principal) >= 0 {
			l.State = listing.StateFunded
		} else if l.Funded.Sign() > 0 {
			l.State = listing.StateOpen
		}
		if excess.Sign() > 0 {
			// chain custody exceeds what the ledger can account for; keep the
			// discrepancy on the event and surface the listing for review
			l.NeedsReview = true
			logrus.Errorf("funding: listing %d over-committed by %s on tx %s", l.ListingID, excess, ref)
		}
		if err := r.Listings.Save(ctx, l); err != nil {
			return err
		}

		if ev == nil {
			ev = &listing.FundingEvent{
				EventID:    id.NewID32(),
				ListingID:  in.ListingID,
				Investor:   in.Investor,
				Amount:     in.Amount,
				Currency:   string(in.Currency),
				ChainTxRef: string(ref),
			}
		}
		ev.Accepted = accepted
		ev.Excess = excess
		ev.Partial = excess.Sign() > 0
		ev.Status = listing.EventRecorded
		if err := r.Events.Save(ctx, ev); err != nil {
			return err
		}

		res = resultFrom(l, ev, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *Usecase) recordPending(ctx context.Context, in FundInput, ref chain.TxRef) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Events.Create(ctx, &listing.FundingEvent{
			EventID:    id.NewID32(),
			ListingID:  in.ListingID,
			Investor:   in.Investor,
			Amount:     in.Amount,
			Currency:   string(in.Currency),
			ChainTxRef: string(ref),
			Status:     listing.EventPending,
		})
	})
}

func (u *Usecase) markEventFailed(ctx context.Context, ref chain.TxRef) {
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		ev, err := r.Events.GetByChainTxRef(ctx, string(ref))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if ev.Status != listing.EventPending {
			return nil
		}
		ev.Status = listing.EventFailed
		return r.Events.Save(ctx, ev)
	})
	if err != nil {
		logrus.Errorf("funding: could not mark tx %s failed: %v", ref, err)
	}
}

// markWithdrawn is the terminal, idempotent transition; retried with the
// same backoff as the funding leg since the release is already final.
// The release ref is written in the same transaction so the terminal
// row carries its settlement anchor.
func (u *Usecase) markWithdrawn(ctx context.Context, listingID uint64, ref chain.TxRef) error {
	backoff := u.policy.LedgerRetryBase
	var lastErr error
	for attempt := 0; attempt < u.policy.LedgerRetries; attempt++ {
		if attempt > 0 {
			logrus.Warnf("funding: withdraw state retry %d for listing %d: %v", attempt, listingID, lastErr)
			if err := sleep(ctx, backoff); err != nil {
				break
			}
			backoff *= 2
		}
		err := u.uow.WithinListingTx(ctx, listingID, func(r uow.Repos, l *listing.Listing) error {
			if l.State == listing.StateWithdrawn {
				return nil
			}
			l.State = listing.StateWithdrawn
			l.ReleaseTxRef = string(ref)
			return r.Listings.Save(ctx, l)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, listing.ErrNotFound) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: listing %d: %v", ErrLedgerRetryExhausted, listingID, lastErr)
}

// recordReleaseRef persists the withdrawal anchor. Best effort: a
// failure here is logged, not surfaced, since the caller is already on
// an ambiguous path whose recovery is the settlement poll.
func (u *Usecase) recordReleaseRef(ctx context.Context, listingID uint64, ref chain.TxRef) {
	err := u.uow.WithinListingTx(ctx, listingID, func(r uow.Repos, l *listing.Listing) error {
		if l.ReleaseTxRef == string(ref) {
			return nil
		}
		l.ReleaseTxRef = string(ref)
		return r.Listings.Save(ctx, l)
	})
	if err != nil {
		logrus.Errorf("funding: could not anchor release tx %s on listing %d: %v", ref, listingID, err)
	}
}

func (u *Usecase) clearReleaseRef(ctx context.Context, listingID uint64, ref chain.TxRef) {
	err := u.uow.WithinListingTx(ctx, listingID, func(r uow.Repos, l *listing.Listing) error {
		if l.ReleaseTxRef != string(ref) || l.State == listing.StateWithdrawn {
			return nil
		}
		l.ReleaseTxRef = ""
		return r.Listings.Save(ctx, l)
	})
	if err != nil {
		logrus.Errorf("funding: could not clear release tx %s on listing %d: %v", ref, listingID, err)
	}
}

func resultFrom(l *listing.Listing, ev *listing.FundingEvent, ref chain.TxRef) *FundResult {
	return &FundResult{
		ChainTxRef: string(ref),
		Funded:     l.Funded,
		Accepted:   ev.Accepted,
		Excess:     ev.Excess,
		Partial:    ev.Partial,
		State:      l.State,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
