package service

import (
	"context"
	"time"

	"auction-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStore is the slice of the entity store the services need for
// auction documents. Satisfied by *store.Store.
type AuctionStore interface {
	InsertAuction(ctx context.Context, auction *models.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	ReplaceAuction(ctx context.Context, auction *models.Auction) (bool, error)
	DeleteAuction(ctx context.Context, id uuid.UUID) (int64, error)
	AuctionsByCatalog(ctx context.Context, catalogID uuid.UUID) ([]models.Auction, error)
	AuctionsByCatalogStatus(ctx context.Context, catalogID uuid.UUID, status string) ([]models.Auction, error)
}

// CatalogStore is the catalog half of the entity store. Satisfied by *store.Store.
type CatalogStore interface {
	InsertCatalog(ctx context.Context, catalog *models.Catalog) error
	GetCatalog(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
	ReplaceCatalog(ctx context.Context, catalog *models.Catalog) (bool, error)
	DeleteCatalog(ctx context.Context, id uuid.UUID) (int64, error)
	ListCatalogs(ctx context.Context) ([]models.Catalog, error)
}

// OutcomePublisher sends finalization outcomes downstream. Satisfied by
// *broker.EventPublisher.
type OutcomePublisher interface {
	PublishAuctionSync(ctx context.Context, msg *models.AuctionSyncMessage) error
	PublishEffectOutcome(ctx context.Context, msg *models.EffectOutcomeMessage) error
}

// FloorCache is the advisory bid-floor cache. Satisfied by *redisclient.Client;
// services accept nil and skip the cache entirely.
type FloorCache interface {
	GetFloor(ctx context.Context, auctionID string) (decimal.Decimal, bool, error)
	SetFloor(ctx context.Context, auctionID string, floor decimal.Decimal, ttl time.Duration) error
	DropFloor(ctx context.Context, auctionID string) error
}
