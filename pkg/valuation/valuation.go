// Package valuation holds the pure read-model math for listings: funded
// percentage, time-to-maturity decomposition and the decaying interest
// rate. Everything here is a function of listing fields and a clock —
// no storage, no chain.
package valuation

import (
	"math/big"
	"time"

	"gaplend-backend/pkg/amount"
)

// FundedPercentage returns round(funded/principal*100) capped at 100,
// and 0 when either side is zero.
func FundedPercentage(funded, principal amount.Amount) int {
	if principal.IsZero() || funded.IsZero() {
		return 0
	}
	// round half up: (funded*200 + principal) / (principal*2)
	num := new(big.Int).Mul(funded.BigInt(), big.NewInt(200))
	num.Add(num, principal.BigInt())
	den := new(big.Int).Mul(principal.BigInt(), big.NewInt(2))
	pct := num.Div(num, den)
	if pct.Cmp(big.NewInt(100)) > 0 {
		return 100
	}
	return int(pct.Int64())
}

type Remaining struct {
	Expired bool `json:"expired"`
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
}

// TimeRemaining decomposes maturity−now for display. maturity is a unix
// timestamp in seconds.
func TimeRemaining(maturity int64, now time.Time) Remaining {
	diff := maturity - now.Unix()
	if diff <= 0 {
		return Remaining{Expired: true}
	}
	return Remaining{
		Days:    int(diff / (24 * 3600)),
		Hours:   int((diff % (24 * 3600)) / 3600),
		Minutes: int((diff % 3600) / 60),
	}
}

// DecayMode selects how the effective rate moves from startBps toward
// minBps over a listing's life.
type DecayMode string

const (
	// DecayLinearTime decays linearly with elapsed time between listing
	// creation and maturity.
	DecayLinearTime DecayMode = "linear-time"
	// DecayFundedFraction decays linearly with the funded fraction.
	DecayFundedFraction DecayMode = "funded-fraction"
)

func (m DecayMode) Valid() bool {
	return m == DecayLinearTime || m == DecayFundedFraction
}

// RateInput carries everything EffectiveRateBps may need; unused fields
// for a given mode are ignored.
type RateInput struct {
	StartBps  int
	MinBps    int
	CreatedAt int64 // unix seconds
	Maturity  int64 // unix seconds
	Now       time.Time
	Funded    amount.Amount
	Principal amount.Amount
}

// EffectiveRateBps computes the current rate in basis points, clamped to
// [MinBps, StartBps]. Degenerate inputs (min above start, zero span)
// collapse to the appropriate bound rather than erroring: valuation is a
// display path and must total-function over whatever is stored.
func EffectiveRateBps(mode DecayMode, in RateInput) int {
	if in.MinBps >= in.StartBps {
		return in.MinBps
	}
	span := in.StartBps - in.MinBps

	var decayed int
	switch mode {
	case DecayFundedFraction:
		if in.Principal.IsZero() {
			return in.StartBps
		}
		num := new(big.Int).Mul(in.Funded.BigInt(), big.NewInt(int64(span)))
		decayed = int(num.Div(num, in.Principal.BigInt()).Int64())
	default: // DecayLinearTime
		total := in.Maturity - in.CreatedAt
		if total <= 0 {
			return in.MinBps
		}
		elapsed := in.Now.Unix() - in.CreatedAt
		if elapsed <= 0 {
			return in.StartBps
		}
		if elapsed >= total {
			return in.MinBps
		}
		decayed = int(int64(span) * elapsed / total)
	}

	rate := in.StartBps - decayed
	if rate < in.MinBps {
		return in.MinBps
	}
	if rate > in.StartBps {
		return in.StartBps
	}
	return rate
}
