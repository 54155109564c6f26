package uowmock

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/domain/uow"
)

// Memory is an in-memory UnitOfWork whose transactions are serialized by
// a single mutex, giving tests the same per-listing atomicity the real
// UoW gets from row locks. Mutations are applied to the stored records
// directly; there is no rollback, so only use it for happy-path and
// concurrency tests.
type Memory struct {
	mu       sync.Mutex
	Listings map[uint64]*listing.Listing
	Events   map[string]*listing.FundingEvent
}

var _ uow.UnitOfWork = (*Memory)(nil)

func NewMemory(listings ...*listing.Listing) *Memory {
	m := &Memory{
		Listings: make(map[uint64]*listing.Listing),
		Events:   make(map[string]*listing.FundingEvent),
	}
	for _, l := range listings {
		m.Listings[l.ListingID] = l
	}
	return m
}

// Repos exposes the map-backed repositories for read paths in tests.
// Reads are unsynchronized; take them only between operations.
func (m *Memory) Repos() uow.Repos {
	return uow.Repos{Listings: (*memListings)(m), Events: (*memEvents)(m)}
}

func (m *Memory) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.Repos())
}

func (m *Memory) WithinListingTx(ctx context.Context, listingID uint64, fn func(r uow.Repos, l *listing.Listing) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Listings[listingID]
	if !ok {
		return listing.ErrNotFound
	}
	return fn(m.Repos(), l)
}

type memListings Memory

func (m *memListings) Create(ctx context.Context, l *listing.Listing) error {
	m.Listings[l.ListingID] = l
	return nil
}

func (m *memListings) GetByListingID(ctx context.Context, listingID uint64) (*listing.Listing, error) {
	l, ok := m.Listings[listingID]
	if !ok {
		return nil, listing.ErrNotFound
	}
	return l, nil
}

func (m *memListings) GetByListingIDForUpdate(ctx context.Context, listingID uint64) (*listing.Listing, error) {
	return m.GetByListingID(ctx, listingID)
}

func (m *memListings) GetByReleaseTxRef(ctx context.Context, ref string) (*listing.Listing, error) {
	for _, l := range m.Listings {
		if l.ReleaseTxRef == ref {
			return l, nil
		}
	}
	return nil, listing.ErrNotFound
}

func (m *memListings) List(ctx context.Context) ([]listing.Listing, error) {
	out := make([]listing.Listing, 0, len(m.Listings))
	for _, l := range m.Listings {
		out = append(out, *l)
	}
	return out, nil
}

func (m *memListings) Save(ctx context.Context, l *listing.Listing) error {
	m.Listings[l.ListingID] = l
	return nil
}

type memEvents Memory

func (m *memEvents) Create(ctx context.Context, e *listing.FundingEvent) error {
	// mirrors the ON CONFLICT DO NOTHING semantics of the real repo
	if _, ok := m.Events[e.ChainTxRef]; ok {
		return nil
	}
	m.Events[e.ChainTxRef] = e
	return nil
}

func (m *memEvents) GetByChainTxRef(ctx context.Context, ref string) (*listing.FundingEvent, error) {
	e, ok := m.Events[ref]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (m *memEvents) ListByListingID(ctx context.Context, listingID uint64) ([]listing.FundingEvent, error) {
	var out []listing.FundingEvent
	for _, e := range m.Events {
		if e.ListingID == listingID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memEvents) Save(ctx context.Context, e *listing.FundingEvent) error {
	m.Events[e.ChainTxRef] = e
	return nil
}
