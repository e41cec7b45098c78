package service

import (
	"context"
	"fmt"

	"auction-service/internal/models"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuctionService owns auction state transitions outside finalization:
// creation, catalog assignment and explicit status updates. Bid submission
// is delegated to the BidService.
type AuctionService struct {
	auctions AuctionStore
	catalogs CatalogStore
	bids     *BidService
	cache    FloorCache
	logger   *zap.Logger
}

// NewAuctionService creates a new auction service. cache may be nil.
func NewAuctionService(auctions AuctionStore, catalogs CatalogStore, bids *BidService, cache FloorCache) *AuctionService {
	return &AuctionService{
		auctions: auctions,
		catalogs: catalogs,
		bids:     bids,
		cache:    cache,
		logger:   util.NamedLogger("auctions"),
	}
}

// CreateAuctionRequest represents a request to create an auction. A catalog
// id makes the auction ACTIVE from the start, inheriting the catalog's end
// date; without one the auction is created INACTIVE and unassigned.
type CreateAuctionRequest struct {
	Name      string          `json:"name" binding:"required"`
	CatalogID *uuid.UUID      `json:"catalog_id,omitempty"`
	MinPrice  decimal.Decimal `json:"min_price"`
	Effect    *models.Effect  `json:"effect,omitempty"`
}

// CreateAuction creates a new auction, assigned or unassigned
func (s *AuctionService) CreateAuction(ctx context.Context, req *CreateAuctionRequest) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.CreateAuction")
	defer span.End()

	auction := &models.Auction{
		ID:         uuid.New(),
		Name:       req.Name,
		Status:     models.AuctionStatusInactive,
		MinPrice:   req.MinPrice,
		BidHistory: []models.Bid{},
		Effect:     req.Effect,
	}

	if req.CatalogID != nil {
		catalog, err := s.catalogs.GetCatalog(ctx, *req.CatalogID)
		if err != nil {
			return nil, err
		}
		auction.CatalogID = &catalog.ID
		auction.EndDate = &catalog.EndDate
		auction.Status = models.AuctionStatusActive
	}

	if err := s.auctions.InsertAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	util.AuctionsCreatedTotal.Inc()
	s.logger.Info("Auction created",
		zap.String("auction_id", auction.ID.String()),
		zap.String("status", auction.Status))
	return auction, nil
}

// GetAuction retrieves an auction by ID
func (s *AuctionService) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.auctions.GetAuction(ctx, id)
}

// DeleteAuction deletes an auction by ID
func (s *AuctionService) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.auctions.DeleteAuction(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", models.ErrAuctionNotFound, id)
	}

	s.dropFloor(ctx, id)
	s.logger.Info("Auction deleted", zap.String("auction_id", id.String()))
	return nil
}

// UpdateAuctionStatus sets an auction's status with no validation beyond
// existence. Finalization does not go through here.
func (s *AuctionService) UpdateAuctionStatus(ctx context.Context, id uuid.UUID, status string) (*models.Auction, error) {
	auction, err := s.mutateAuction(ctx, id, func(a *models.Auction) error {
		a.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A cached floor on a non-ACTIVE auction would mask the state check
	// with a too-low rejection.
	s.dropFloor(ctx, id)
	s.logger.Info("Auction status updated",
		zap.String("auction_id", id.String()),
		zap.String("status", status))
	return auction, nil
}

// AssignToCatalog attaches an unassigned auction to a catalog: the auction
// inherits the catalog's end date, takes the given minimum price and goes
// ACTIVE.
func (s *AuctionService) AssignToCatalog(ctx context.Context, auctionID, catalogID uuid.UUID, minPrice decimal.Decimal) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.AssignToCatalog")
	defer span.End()

	catalog, err := s.catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	auction, err := s.mutateAuction(ctx, auctionID, func(a *models.Auction) error {
		a.CatalogID = &catalog.ID
		a.MinPrice = minPrice
		a.EndDate = &catalog.EndDate
		a.Status = models.AuctionStatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The assignment changed the minimum price; the cached floor is stale.
	s.dropFloor(ctx, auctionID)
	s.logger.Info("Auction assigned to catalog",
		zap.String("auction_id", auctionID.String()),
		zap.String("catalog_id", catalogID.String()))
	return auction, nil
}

// ListByCatalogStatus lists a catalog's auctions filtered by status
func (s *AuctionService) ListByCatalogStatus(ctx context.Context, catalogID uuid.UUID, status string) ([]models.Auction, error) {
	return s.auctions.AuctionsByCatalogStatus(ctx, catalogID, status)
}

// SubmitBid delegates bid application to the bid acceptance engine
func (s *AuctionService) SubmitBid(ctx context.Context, req *PlaceBidRequest) (*models.Auction, error) {
	return s.bids.ApplyBid(ctx, req)
}

func (s *AuctionService) dropFloor(ctx context.Context, auctionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DropFloor(ctx, auctionID.String()); err != nil {
		s.logger.Warn("Failed to evict floor cache entry",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
	}
}

// mutateAuction applies fn to a freshly read auction and replaces the full
// record, retrying the read-modify-write on version conflict.
func (s *AuctionService) mutateAuction(ctx context.Context, id uuid.UUID, fn func(*models.Auction) error) (*models.Auction, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		auction, err := s.auctions.GetAuction(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(auction); err != nil {
			return nil, err
		}

		ok, err := s.auctions.ReplaceAuction(ctx, auction)
		if err != nil {
			return nil, fmt.Errorf("failed to update auction: %w", err)
		}
		if ok {
			return auction, nil
		}
		util.AuctionUpdateConflictsTotal.Inc()
	}
	return nil, fmt.Errorf("auction %s update conflicted %d times, giving up", id, attempts)
}
