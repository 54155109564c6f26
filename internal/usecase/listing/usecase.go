package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/pkg/amount"
	"gaplend-backend/pkg/valuation"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

var categories = map[string]bool{
	"": true, "car": true, "bakery": true, "real-estate": true, "other": true,
}

type Usecase struct {
	repo   domain.Repository
	events domain.EventRepository
	decay  valuation.DecayMode
}

func NewUsecase(r domain.Repository, events domain.EventRepository, decay valuation.DecayMode) *Usecase {
	if !decay.Valid() {
		decay = valuation.DecayLinearTime
	}
	return &Usecase{repo: r, events: events, decay: decay}
}

type CreateListingInput struct {
	ListingID   uint64 `json:"listing_id"`
	Borrower    string `json:"borrower"`
	Principal   string `json:"principal"`
	StartBps    int    `json:"start_bps"`
	MinBps      int    `json:"min_bps"`
	Maturity    int64  `json:"maturity"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// ListingDTO is the read snapshot: stored fields plus the derived
// valuation figures.
type ListingDTO struct {
	ListingID        uint64              `json:"listing_id"`
	Borrower         string              `json:"borrower"`
	Principal        amount.Amount       `json:"principal"`
	StartBps         int                 `json:"start_bps"`
	MinBps           int                 `json:"min_bps"`
	Maturity         int64               `json:"maturity"`
	Funded           amount.Amount       `json:"funded"`
	State            string              `json:"state"`
	NeedsReview      bool                `json:"needs_review,omitempty"`
	Category         string              `json:"category,omitempty"`
	Title            string              `json:"title,omitempty"`
	Description      string              `json:"description,omitempty"`
	ImageURL         string              `json:"image_url,omitempty"`
	FundedPercentage int                 `json:"funded_percentage"`
	TimeRemaining    valuation.Remaining `json:"time_remaining"`
	EffectiveRateBps int                 `json:"effective_rate_bps"`
	CreatedAt        time.Time           `json:"created_at"`
}

func (u *Usecase) Create(ctx context.Context, in CreateListingInput) (*ListingDTO, error) {
	principal, err := amount.FromString(in.Principal)
	if err != nil || principal.Sign() <= 0 {
		return nil, fmt.Errorf("%w: principal must be a positive integer string", ErrInvalidInput)
	}
	if in.MinBps < 0 || in.MinBps > in.StartBps {
		return nil, fmt.Errorf("%w: need 0 <= min_bps <= start_bps", ErrInvalidInput)
	}
	now := time.Now().UTC()
	if in.Maturity <= now.Unix() {
		return nil, fmt.Errorf("%w: maturity must be in the future", ErrInvalidInput)
	}
	if !categories[in.Category] {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}

	l := &domain.Listing{
		ListingID:   in.ListingID,
		Borrower:    in.Borrower,
		Principal:   principal,
		StartBps:    in.StartBps,
		MinBps:      in.MinBps,
		Maturity:    in.Maturity,
		Funded:      amount.New(0),
		State:       domain.StateCreated,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return u.toDTO(l, now), nil
}

func (u *Usecase) Get(ctx context.Context, listingID uint64) (*ListingDTO, error) {
	l, err := u.repo.GetByListingID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return u.toDTO(l, time.Now().UTC()), nil
}

func (u *Usecase) List(ctx context.Context) ([]ListingDTO, error) {
	ls, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]ListingDTO, 0, len(ls))
	for i := range ls {
		out = append(out, *u.toDTO(&ls[i], now))
	}
	return out, nil
}

// Events returns the audit trail for a listing.
func (u *Usecase) Events(ctx context.Context, listingID uint64) ([]domain.FundingEvent, error) {
	if _, err := u.repo.GetByListingID(ctx, listingID); err != nil {
		return nil, err
	}
	return u.events.ListByListingID(ctx, listingID)
}

func (u *Usecase) toDTO(l *domain.Listing, now time.Time) *ListingDTO {
	return &ListingDTO{
		ListingID:        l.ListingID,
		Borrower:         l.Borrower,
		Principal:        l.Principal,
		StartBps:         l.StartBps,
		MinBps:           l.MinBps,
		Maturity:         l.Maturity,
		Funded:           l.Funded,
		State:            string(l.StateAt(now)),
		NeedsReview:      l.NeedsReview,
		Category:         l.Category,
		Title:            l.Title,
		Description:      l.Description,
		ImageURL:         l.ImageURL,
		FundedPercentage: valuation.FundedPercentage(l.Funded, l.Principal),
		TimeRemaining:    valuation.TimeRemaining(l.Maturity, now),
		EffectiveRateBps: valuation.EffectiveRateBps(u.decay, valuation.RateInput{
			StartBps:  l.StartBps,
			MinBps:    l.MinBps,
			CreatedAt: l.CreatedAt.Unix(),
			Maturity:  l.Maturity,
			Now:       now,
			Funded:    l.Funded,
			Principal: l.Principal,
		}),
		CreatedAt: l.CreatedAt,
	}
}
