package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, store *memStore, endDate time.Time) *models.Catalog {
	t.Helper()
	catalog := &models.Catalog{
		ID:        uuid.New(),
		Name:      "Spring sale",
		StartDate: endDate.Add(-24 * time.Hour),
		EndDate:   endDate,
		Status:    models.CatalogStatusActive,
	}
	require.NoError(t, store.InsertCatalog(context.Background(), catalog))
	return catalog
}

func seedAuction(t *testing.T, store *memStore, catalog *models.Catalog, minPrice string, effect *models.Effect) *models.Auction {
	t.Helper()
	auction := &models.Auction{
		ID:         uuid.New(),
		Name:       "Lot",
		Status:     models.AuctionStatusActive,
		CatalogID:  &catalog.ID,
		MinPrice:   dec(minPrice),
		BidHistory: []models.Bid{},
		EndDate:    &catalog.EndDate,
		Effect:     effect,
	}
	require.NoError(t, store.InsertAuction(context.Background(), auction))
	return auction
}

func effectFixture() *models.Effect {
	return &models.Effect{
		ID:              uuid.New(),
		Title:           "Danish oak sideboard",
		AssessmentPrice: dec("400"),
	}
}

func TestEndCatalogRequiresAuctions(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))

	svc := NewCatalogService(store, store, newFakePublisher(), nil)
	err := svc.EndCatalog(context.Background(), catalog.ID)
	assert.ErrorIs(t, err, models.ErrNoAuctions)

	stored, err := store.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogStatusActive, stored.Status, "an empty catalog must stay open")
	assert.Nil(t, stored.FinalizedAt)
}

func TestEndCatalogUnknownCatalog(t *testing.T) {
	store := newMemStore()
	svc := NewCatalogService(store, store, newFakePublisher(), nil)
	err := svc.EndCatalog(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrCatalogNotFound)
}

// A catalog with one unsold lot and one lot bid up to 75 by a single user:
// both lots close, both are synced downstream, the sold lot reports its
// winner and the unsold lot reports is_sold=false.
func TestEndCatalogClosesAuctionsAndPublishesOutcomes(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))

	unsoldEffect := effectFixture()
	soldEffect := effectFixture()
	unsold := seedAuction(t, store, catalog, "100", unsoldEffect)
	sold := seedAuction(t, store, catalog, "50", soldEffect)

	bids := NewBidService(store, nil, 3)
	winner := uuid.New()
	_, err := bids.ApplyBid(context.Background(), &PlaceBidRequest{
		AuctionID: sold.ID,
		UserID:    winner,
		Amount:    dec("75"),
	})
	require.NoError(t, err)

	publisher := newFakePublisher()
	svc := NewCatalogService(store, store, publisher, nil)
	require.NoError(t, svc.EndCatalog(context.Background(), catalog.ID))

	storedCatalog, err := store.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogStatusClosed, storedCatalog.Status)
	require.NotNil(t, storedCatalog.FinalizedAt)

	for _, id := range []uuid.UUID{unsold.ID, sold.ID} {
		a, err := store.GetAuction(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.AuctionStatusClosed, a.Status)
	}

	require.Len(t, publisher.syncMsgs, 2)
	for _, msg := range publisher.syncMsgs {
		assert.Equal(t, models.AuctionStatusClosed, msg.Status)
		assert.NotEmpty(t, msg.IdempotencyKey)
	}

	require.Len(t, publisher.storageMsgs, 2)
	byEffect := make(map[uuid.UUID]models.EffectOutcomeMessage)
	for _, msg := range publisher.storageMsgs {
		byEffect[msg.EffectID] = msg
	}

	unsoldMsg := byEffect[unsoldEffect.ID]
	assert.False(t, unsoldMsg.IsSold)
	assert.Nil(t, unsoldMsg.WinnerUserID)
	assert.Nil(t, unsoldMsg.FinalPrice)

	soldMsg := byEffect[soldEffect.ID]
	assert.True(t, soldMsg.IsSold)
	require.NotNil(t, soldMsg.WinnerUserID)
	assert.Equal(t, winner, *soldMsg.WinnerUserID)
	require.NotNil(t, soldMsg.FinalPrice)
	assert.True(t, soldMsg.FinalPrice.Equal(dec("75")))
}

func TestEndCatalogIsIdempotent(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))
	seedAuction(t, store, catalog, "100", effectFixture())

	publisher := newFakePublisher()
	svc := NewCatalogService(store, store, publisher, nil)

	require.NoError(t, svc.EndCatalog(context.Background(), catalog.ID))
	first, err := store.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)
	require.NotNil(t, first.FinalizedAt)

	require.NoError(t, svc.EndCatalog(context.Background(), catalog.ID))
	second, err := store.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)

	// The finalization stamp survives the retry, so re-published outcomes
	// carry the same idempotency key.
	require.NotNil(t, second.FinalizedAt)
	assert.True(t, first.FinalizedAt.Equal(*second.FinalizedAt))
	require.Len(t, publisher.syncMsgs, 2)
	assert.Equal(t, publisher.syncMsgs[0].IdempotencyKey, publisher.syncMsgs[1].IdempotencyKey)
}

func TestEndCatalogIsolatesPublishFailures(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))

	failingEffect := effectFixture()
	okEffect := effectFixture()
	seedAuction(t, store, catalog, "100", failingEffect)
	healthy := seedAuction(t, store, catalog, "100", okEffect)

	publisher := newFakePublisher()
	publisher.storageErrFor[failingEffect.ID] = errors.New("broker unavailable")

	svc := NewCatalogService(store, store, publisher, nil)
	require.NoError(t, svc.EndCatalog(context.Background(), catalog.ID))

	// Both lots still close and sync; only the failing storage message is
	// missing.
	a, err := store.GetAuction(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusClosed, a.Status)

	assert.Len(t, publisher.syncMsgs, 2)
	require.Len(t, publisher.storageMsgs, 1)
	assert.Equal(t, okEffect.ID, publisher.storageMsgs[0].EffectID)
}

func TestEndCatalogSkipsStorageWithoutEffect(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))
	seedAuction(t, store, catalog, "100", nil)

	publisher := newFakePublisher()
	svc := NewCatalogService(store, store, publisher, nil)
	require.NoError(t, svc.EndCatalog(context.Background(), catalog.ID))

	assert.Len(t, publisher.syncMsgs, 1)
	assert.Empty(t, publisher.storageMsgs)
}

func TestEndCatalogDropsFloorCacheEntries(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))
	auction := seedAuction(t, store, catalog, "100", effectFixture())

	cache := newStubFloorCache()
	cache.floors[auction.ID.String()] = dec("100")

	svc := NewCatalogService(store, store, newFakePublisher(), cache)
	require.NoError(t, svc.EndCatalog(context.Background(), catalog.ID))

	_, ok := cache.floors[auction.ID.String()]
	assert.False(t, ok)
	assert.Equal(t, 1, cache.drops)
}

func TestGetCatalogSweepsExpiredCatalog(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(-time.Minute))
	auction := seedAuction(t, store, catalog, "100", effectFixture())

	publisher := newFakePublisher()
	svc := NewCatalogService(store, store, publisher, nil)

	got, err := svc.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogStatusClosed, got.Status)

	a, err := store.GetAuction(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusClosed, a.Status)
	assert.Len(t, publisher.syncMsgs, 1)
}

func TestGetCatalogLeavesUnexpiredAlone(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))

	publisher := newFakePublisher()
	svc := NewCatalogService(store, store, publisher, nil)

	got, err := svc.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogStatusActive, got.Status)
	assert.Empty(t, publisher.syncMsgs)
}

func TestHandleAuctionFinishAllowsEmptyCatalog(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(-time.Minute))

	svc := NewCatalogService(store, store, newFakePublisher(), nil)
	require.NoError(t, svc.HandleAuctionFinish(context.Background(), catalog.ID))

	stored, err := store.GetCatalog(context.Background(), catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogStatusClosed, stored.Status)
}

func TestDeleteCatalog(t *testing.T) {
	store := newMemStore()
	catalog := seedCatalog(t, store, time.Now().Add(time.Hour))

	svc := NewCatalogService(store, store, newFakePublisher(), nil)
	require.NoError(t, svc.DeleteCatalog(context.Background(), catalog.ID))

	err := svc.DeleteCatalog(context.Background(), catalog.ID)
	assert.ErrorIs(t, err, models.ErrCatalogNotFound)
}
