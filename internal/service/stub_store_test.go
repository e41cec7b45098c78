package service

import (
	"context"
	"sync"

	"auction-service/internal/models"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the entity store with the same
// version semantics as the Postgres implementation.
type memStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]models.Auction
	catalogs map[uuid.UUID]models.Catalog

	// beforeReplaceAuction runs under the lock just before a replace is
	// checked, letting tests simulate a concurrent writer.
	beforeReplaceAuction func(stored *models.Auction)

	// getAuctionErr, when set, makes every read fail with it.
	getAuctionErr error
}

func newMemStore() *memStore {
	return &memStore{
		auctions: make(map[uuid.UUID]models.Auction),
		catalogs: make(map[uuid.UUID]models.Catalog),
	}
}

func cloneAuction(a models.Auction) models.Auction {
	out := a
	out.BidHistory = append([]models.Bid(nil), a.BidHistory...)
	if a.CurrentBid != nil {
		bid := *a.CurrentBid
		out.CurrentBid = &bid
	}
	if a.CatalogID != nil {
		id := *a.CatalogID
		out.CatalogID = &id
	}
	if a.EndDate != nil {
		t := *a.EndDate
		out.EndDate = &t
	}
	if a.Effect != nil {
		e := *a.Effect
		out.Effect = &e
	}
	return out
}

func cloneCatalog(c models.Catalog) models.Catalog {
	out := c
	if c.FinalizedAt != nil {
		t := *c.FinalizedAt
		out.FinalizedAt = &t
	}
	return out
}

func (m *memStore) InsertAuction(_ context.Context, auction *models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[auction.ID] = cloneAuction(*auction)
	return nil
}

func (m *memStore) GetAuction(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getAuctionErr != nil {
		return nil, m.getAuctionErr
	}
	a, ok := m.auctions[id]
	if !ok {
		return nil, models.ErrAuctionNotFound
	}
	out := cloneAuction(a)
	return &out, nil
}

func (m *memStore) ReplaceAuction(_ context.Context, auction *models.Auction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.auctions[auction.ID]
	if ok && m.beforeReplaceAuction != nil {
		hook := m.beforeReplaceAuction
		m.beforeReplaceAuction = nil
		hook(&stored)
		m.auctions[auction.ID] = stored
	}

	if !ok || stored.Version != auction.Version {
		return false, nil
	}

	next := cloneAuction(*auction)
	next.Version = auction.Version + 1
	m.auctions[auction.ID] = next
	auction.Version = next.Version
	return true, nil
}

func (m *memStore) DeleteAuction(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.auctions[id]; !ok {
		return 0, nil
	}
	delete(m.auctions, id)
	return 1, nil
}

func (m *memStore) AuctionsByCatalog(_ context.Context, catalogID uuid.UUID) ([]models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Auction
	for _, a := range m.auctions {
		if a.CatalogID != nil && *a.CatalogID == catalogID {
			out = append(out, cloneAuction(a))
		}
	}
	return out, nil
}

func (m *memStore) AuctionsByCatalogStatus(_ context.Context, catalogID uuid.UUID, status string) ([]models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Auction
	for _, a := range m.auctions {
		if a.CatalogID != nil && *a.CatalogID == catalogID && a.Status == status {
			out = append(out, cloneAuction(a))
		}
	}
	return out, nil
}

func (m *memStore) InsertCatalog(_ context.Context, catalog *models.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[catalog.ID] = cloneCatalog(*catalog)
	return nil
}

func (m *memStore) GetCatalog(_ context.Context, id uuid.UUID) (*models.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.catalogs[id]
	if !ok {
		return nil, models.ErrCatalogNotFound
	}
	out := cloneCatalog(c)
	return &out, nil
}

func (m *memStore) ReplaceCatalog(_ context.Context, catalog *models.Catalog) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogs[catalog.ID]; !ok {
		return false, nil
	}
	m.catalogs[catalog.ID] = cloneCatalog(*catalog)
	return true, nil
}

func (m *memStore) DeleteCatalog(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogs[id]; !ok {
		return 0, nil
	}
	delete(m.catalogs, id)
	return 1, nil
}

func (m *memStore) ListCatalogs(_ context.Context) ([]models.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Catalog, 0, len(m.catalogs))
	for _, c := range m.catalogs {
		out = append(out, cloneCatalog(c))
	}
	return out, nil
}

// fakePublisher records published outcomes and can be told to fail for
// specific effects or for the whole sync channel.
type fakePublisher struct {
	mu          sync.Mutex
	syncMsgs    []models.AuctionSyncMessage
	storageMsgs []models.EffectOutcomeMessage

	syncErr       error
	storageErrFor map[uuid.UUID]error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{storageErrFor: make(map[uuid.UUID]error)}
}

func (p *fakePublisher) PublishAuctionSync(_ context.Context, msg *models.AuctionSyncMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.syncErr != nil {
		return p.syncErr
	}
	p.syncMsgs = append(p.syncMsgs, *msg)
	return nil
}

func (p *fakePublisher) PublishEffectOutcome(_ context.Context, msg *models.EffectOutcomeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.storageErrFor[msg.EffectID]; err != nil {
		return err
	}
	p.storageMsgs = append(p.storageMsgs, *msg)
	return nil
}
