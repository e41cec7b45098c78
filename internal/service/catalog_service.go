package service

import (
	"context"
	"fmt"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService owns the catalog lifecycle and the finalization workflow.
// It is the sole writer of the CLOSED transition for catalogs and their
// auctions as a coordinated unit.
//
// There is no cross-entity transaction: the catalog is closed and persisted
// before any auction is touched, so a crash mid-loop leaves the catalog
// CLOSED with some auctions still ACTIVE. A retried finalize only re-closes
// auctions still ACTIVE, which makes retries convergent; re-notification of
// already-closed auctions is acceptable and carries a stable idempotency
// key for downstream de-duplication.
type CatalogService struct {
	catalogs  CatalogStore
	auctions  AuctionStore
	publisher OutcomePublisher
	cache     FloorCache
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(catalogs CatalogStore, auctions AuctionStore, publisher OutcomePublisher, cache FloorCache) *CatalogService {
	return &CatalogService{
		catalogs:  catalogs,
		auctions:  auctions,
		publisher: publisher,
		cache:     cache,
		logger:    util.NamedLogger("catalogs"),
	}
}

// CreateCatalogRequest represents a request to create a catalog
type CreateCatalogRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// CreateCatalog creates a new ACTIVE catalog
func (s *CatalogService) CreateCatalog(ctx context.Context, req *CreateCatalogRequest) (*models.Catalog, error) {
	catalog := &models.Catalog{
		ID:        uuid.New(),
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    models.CatalogStatusActive,
	}

	if err := s.catalogs.InsertCatalog(ctx, catalog); err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}

	s.logger.Info("Catalog created",
		zap.String("catalog_id", catalog.ID.String()),
		zap.Time("end_date", catalog.EndDate))
	return catalog, nil
}

// GetCatalog retrieves a catalog by ID. An ACTIVE catalog read past its
// deadline gets finalized on the way out, so catalogs whose deadline passed
// without an explicit close call still converge to CLOSED.
func (s *CatalogService) GetCatalog(ctx context.Context, id uuid.UUID) (*models.Catalog, error) {
	catalog, err := s.catalogs.GetCatalog(ctx, id)
	if err != nil {
		return nil, err
	}

	if catalog.Status == models.CatalogStatusActive && catalog.Expired(time.Now()) {
		s.logger.Info("Catalog deadline passed, sweeping",
			zap.String("catalog_id", id.String()))
		if err := s.HandleAuctionFinish(ctx, id); err != nil {
			s.logger.Error("Deadline sweep failed", zap.Error(err))
			return catalog, nil
		}
		return s.catalogs.GetCatalog(ctx, id)
	}

	return catalog, nil
}

// DeleteCatalog deletes a catalog by ID
func (s *CatalogService) DeleteCatalog(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.catalogs.DeleteCatalog(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", models.ErrCatalogNotFound, id)
	}

	s.logger.Info("Catalog deleted", zap.String("catalog_id", id.String()))
	return nil
}

// ListCatalogs retrieves all catalogs
func (s *CatalogService) ListCatalogs(ctx context.Context) ([]models.Catalog, error) {
	return s.catalogs.ListCatalogs(ctx)
}

// ListAuctions retrieves all auctions belonging to a catalog
func (s *CatalogService) ListAuctions(ctx context.Context, catalogID uuid.UUID) ([]models.Auction, error) {
	return s.auctions.AuctionsByCatalog(ctx, catalogID)
}

// EndCatalog finalizes a catalog: the catalog is closed and persisted
// first, then every auction is independently closed and its outcome
// published to both downstream channels. Closing a catalog that has no
// auctions is an error, not a no-op. The operation succeeds once the
// catalog itself is closed; per-auction failures are isolated and logged.
func (s *CatalogService) EndCatalog(ctx context.Context, catalogID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.EndCatalog")
	defer span.End()

	catalog, err := s.catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		return err
	}

	auctions, err := s.auctions.AuctionsByCatalog(ctx, catalogID)
	if err != nil {
		return fmt.Errorf("failed to load catalog auctions: %w", err)
	}
	if len(auctions) == 0 {
		return fmt.Errorf("%w: %s", models.ErrNoAuctions, catalogID)
	}

	if err := s.closeCatalog(ctx, catalog); err != nil {
		return err
	}

	s.finalizeAuctions(ctx, catalog, auctions)
	util.CatalogsFinalizedTotal.Inc()
	s.logger.Info("Catalog finalized",
		zap.String("catalog_id", catalogID.String()),
		zap.Int("auctions", len(auctions)))
	return nil
}

// HandleAuctionFinish is the deadline-sweep variant of EndCatalog: it
// closes the catalog and republishes outcomes for whatever auctions it
// currently has, with no non-empty precondition.
func (s *CatalogService) HandleAuctionFinish(ctx context.Context, catalogID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.HandleAuctionFinish")
	defer span.End()

	catalog, err := s.catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		return err
	}

	auctions, err := s.auctions.AuctionsByCatalog(ctx, catalogID)
	if err != nil {
		return fmt.Errorf("failed to load catalog auctions: %w", err)
	}

	if err := s.closeCatalog(ctx, catalog); err != nil {
		return err
	}

	s.finalizeAuctions(ctx, catalog, auctions)
	s.logger.Info("Auction finish handled",
		zap.String("catalog_id", catalogID.String()),
		zap.Int("auctions", len(auctions)))
	return nil
}

// closeCatalog marks the catalog CLOSED and persists it before any auction
// is touched. Calling it on an already-CLOSED catalog is a no-op, keeping
// the finalization entry points idempotent; the original FinalizedAt stamp
// is preserved so re-published outcomes carry the same idempotency keys.
func (s *CatalogService) closeCatalog(ctx context.Context, catalog *models.Catalog) error {
	if catalog.Status == models.CatalogStatusClosed {
		return nil
	}

	now := time.Now().UTC()
	catalog.Status = models.CatalogStatusClosed
	catalog.FinalizedAt = &now

	ok, err := s.catalogs.ReplaceCatalog(ctx, catalog)
	if err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCatalogNotFound, catalog.ID)
	}
	return nil
}

// finalizeAuctions closes each auction and reports its outcome. Auctions
// are processed sequentially and independently: a persist or publish
// failure on one never blocks the rest.
func (s *CatalogService) finalizeAuctions(ctx context.Context, catalog *models.Catalog, auctions []models.Auction) {
	for i := range auctions {
		auction := &auctions[i]

		if auction.Status != models.AuctionStatusClosed {
			auction.Status = models.AuctionStatusClosed
			ok, err := s.auctions.ReplaceAuction(ctx, auction)
			if err != nil || !ok {
				s.logger.Error("Failed to close auction, skipping its notifications",
					zap.String("auction_id", auction.ID.String()),
					zap.Bool("replaced", ok),
					zap.Error(err))
				continue
			}
			util.AuctionsClosedTotal.Inc()
			s.dropFloor(ctx, auction.ID)
		}

		key := outcomeKey(auction.ID, catalog)
		s.publishSync(ctx, auction, key)
		s.publishOutcome(ctx, auction, key)
	}
}

func (s *CatalogService) publishSync(ctx context.Context, auction *models.Auction, key string) {
	current := decimal.Zero
	if auction.CurrentBid != nil {
		current = auction.CurrentBid.Amount
	}

	msg := &models.AuctionSyncMessage{
		AuctionID:      auction.ID,
		Status:         auction.Status,
		MinBid:         auction.MinPrice,
		CurrentBid:     current,
		EndDate:        auction.EndDate,
		IdempotencyKey: key,
	}

	if err := s.publisher.PublishAuctionSync(ctx, msg); err != nil {
		util.OutcomePublishFailures.WithLabelValues("sync").Inc()
		s.logger.Error("Failed to publish auction sync",
			zap.String("auction_id", auction.ID.String()),
			zap.Error(err))
	}
}

func (s *CatalogService) publishOutcome(ctx context.Context, auction *models.Auction, key string) {
	// A lot without an effect reference cannot be reported to storage; a
	// data-quality gap in one item must not block the rest of the catalog.
	if auction.Effect == nil || auction.Effect.ID == uuid.Nil {
		s.logger.Warn("Auction has no effect reference, skipping storage notification",
			zap.String("auction_id", auction.ID.String()))
		return
	}

	msg := &models.EffectOutcomeMessage{
		EffectID:       auction.Effect.ID,
		IsSold:         auction.IsSold(),
		IdempotencyKey: key,
	}
	if auction.CurrentBid != nil {
		winner := auction.CurrentBid.UserID
		price := auction.CurrentBid.Amount
		msg.WinnerUserID = &winner
		msg.FinalPrice = &price
	}

	if err := s.publisher.PublishEffectOutcome(ctx, msg); err != nil {
		util.OutcomePublishFailures.WithLabelValues("storage").Inc()
		s.logger.Error("Failed to publish effect outcome",
			zap.String("auction_id", auction.ID.String()),
			zap.String("effect_id", auction.Effect.ID.String()),
			zap.Error(err))
	}
}

func (s *CatalogService) dropFloor(ctx context.Context, auctionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DropFloor(ctx, auctionID.String()); err != nil {
		s.logger.Warn("Failed to evict floor cache entry",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
	}
}

// outcomeKey builds the idempotency key for one auction's outcome within
// one finalization epoch, stable across retries of the same finalization.
func outcomeKey(auctionID uuid.UUID, catalog *models.Catalog) string {
	epoch := catalog.EndDate
	if catalog.FinalizedAt != nil {
		epoch = *catalog.FinalizedAt
	}
	return fmt.Sprintf("%s:%d", auctionID, epoch.Unix())
}
