package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/testutil/listingmock"
	"gaplend-backend/pkg/amount"
	"gaplend-backend/pkg/valuation"
)

func validInput() CreateListingInput {
	return CreateListingInput{
		ListingID: 1,
		Borrower:  "0xb000000000000000000000000000000000000000",
		Principal: "1000000000000000000000",
		StartBps:  1200,
		MinBps:    800,
		Maturity:  time.Now().Add(30 * 24 * time.Hour).Unix(),
		Category:  "bakery",
		Title:     "Oven upgrade",
	}
}

func TestCreate_Success(t *testing.T) {
	var created *domain.Listing
	uc := NewUsecase(&listingmock.Repo{
		CreateFn: func(ctx context.Context, l *domain.Listing) error {
			l.CreatedAt = time.Now().UTC()
			created = l
			return nil
		},
	}, &listingmock.Events{}, valuation.DecayLinearTime)

	dto, err := uc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created == nil || created.State != domain.StateCreated {
		t.Fatalf("entity: %+v", created)
	}
	if dto.State != string(domain.StateCreated) || dto.FundedPercentage != 0 {
		t.Fatalf("dto: %+v", dto)
	}
	if dto.EffectiveRateBps != 1200 {
		t.Fatalf("a fresh listing starts at start_bps, got %d", dto.EffectiveRateBps)
	}
	if dto.TimeRemaining.Expired {
		t.Fatal("fresh listing must not be expired")
	}
}

func TestCreate_RejectsBadInput(t *testing.T) {
	uc := NewUsecase(&listingmock.Repo{
		CreateFn: func(ctx context.Context, l *domain.Listing) error {
			t.Fatal("Create must not be called for invalid input")
			return nil
		},
	}, &listingmock.Events{}, valuation.DecayLinearTime)
	ctx := context.Background()

	mutations := []func(*CreateListingInput){
		func(in *CreateListingInput) { in.Principal = "0" },
		func(in *CreateListingInput) { in.Principal = "12.5" },
		func(in *CreateListingInput) { in.MinBps = 1500 }, // above start
		func(in *CreateListingInput) { in.MinBps = -1 },
		func(in *CreateListingInput) { in.Maturity = time.Now().Add(-time.Hour).Unix() },
		func(in *CreateListingInput) { in.Category = "yachts" },
	}
	for i, mutate := range mutations {
		in := validInput()
		mutate(&in)
		if _, err := uc.Create(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: got %v", i, err)
		}
	}
}

func TestGet_DerivesMaturedState(t *testing.T) {
	uc := NewUsecase(&listingmock.Repo{
		GetByListingIDFn: func(ctx context.Context, listingID uint64) (*domain.Listing, error) {
			return &domain.Listing{
				ListingID: listingID,
				Principal: amount.New(1000),
				Funded:    amount.New(400),
				StartBps:  1200,
				MinBps:    800,
				Maturity:  time.Now().Add(-time.Minute).Unix(),
				State:     domain.StateOpen, // stale projection
			}, nil
		},
	}, &listingmock.Events{}, valuation.DecayLinearTime)

	dto, err := uc.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dto.State != string(domain.StateMatured) {
		t.Fatalf("state=%s, reader must see matured", dto.State)
	}
	if !dto.TimeRemaining.Expired {
		t.Fatal("time remaining must be expired")
	}
	if dto.FundedPercentage != 40 {
		t.Fatalf("funded percentage=%d", dto.FundedPercentage)
	}
}

func TestList_MapsAll(t *testing.T) {
	uc := NewUsecase(&listingmock.Repo{
		ListFn: func(ctx context.Context) ([]domain.Listing, error) {
			return []domain.Listing{
				{ListingID: 1, Principal: amount.New(100), Funded: amount.New(50), Maturity: time.Now().Add(time.Hour).Unix()},
				{ListingID: 2, Principal: amount.New(100), Maturity: time.Now().Add(time.Hour).Unix()},
			}, nil
		},
	}, &listingmock.Events{}, valuation.DecayLinearTime)

	dtos, err := uc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dtos) != 2 {
		t.Fatalf("len=%d", len(dtos))
	}
	if dtos[0].FundedPercentage != 50 || dtos[1].FundedPercentage != 0 {
		t.Fatalf("percentages: %d, %d", dtos[0].FundedPercentage, dtos[1].FundedPercentage)
	}
}

func TestEvents_UnknownListing(t *testing.T) {
	uc := NewUsecase(&listingmock.Repo{}, &listingmock.Events{}, valuation.DecayLinearTime)
	_, err := uc.Events(context.Background(), 404)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}
