package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const floorCacheTTL = time.Hour

// BidService validates and applies single bids to single auctions. It is
// the only writer of BidHistory and CurrentBid.
type BidService struct {
	store       AuctionStore
	cache       FloorCache
	logger      *zap.Logger
	maxAttempts int
}

// NewBidService creates a new bid service. cache may be nil.
func NewBidService(store AuctionStore, cache FloorCache, maxAttempts int) *BidService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &BidService{
		store:       store,
		cache:       cache,
		logger:      util.NamedLogger("bids"),
		maxAttempts: maxAttempts,
	}
}

// PlaceBidRequest carries a bid toward a target auction. The submitted
// timestamp, if any, is discarded; acceptance time is assigned here.
type PlaceBidRequest struct {
	BidID     uuid.UUID       `json:"bid_id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	UserID    uuid.UUID       `json:"user_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// ApplyBid validates a bid against the target auction and, if accepted,
// appends it to the bid history, promotes it to current bid and persists
// the full auction record. The read-modify-write sequence is retried on
// version conflict so a concurrent winner cannot be silently overwritten.
func (s *BidService) ApplyBid(ctx context.Context, req *PlaceBidRequest) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "BidService.ApplyBid")
	defer span.End()

	start := time.Now()
	defer func() {
		util.BidApplyLatency.Observe(time.Since(start).Seconds())
	}()

	// Floors only ever rise, so a stale cached floor can never reject a
	// bid the store would have accepted.
	if s.cache != nil {
		if floor, ok, err := s.cache.GetFloor(ctx, req.AuctionID.String()); err == nil && ok {
			if !req.Amount.GreaterThan(floor) {
				util.BidsRejectedTotal.WithLabelValues("too_low").Inc()
				return nil, fmt.Errorf("%w: floor %s", models.ErrBidTooLow, floor)
			}
		}
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		auction, err := s.store.GetAuction(ctx, req.AuctionID)
		if err != nil {
			if errors.Is(err, models.ErrAuctionNotFound) {
				util.BidsRejectedTotal.WithLabelValues("not_found").Inc()
			}
			return nil, err
		}

		if err := s.validate(ctx, auction, req.Amount); err != nil {
			return nil, err
		}

		bid := models.Bid{
			ID:        req.BidID,
			UserID:    req.UserID,
			Amount:    req.Amount,
			Timestamp: time.Now().UTC(),
		}
		if bid.ID == uuid.Nil {
			bid.ID = uuid.New()
		}

		auction.BidHistory = append(auction.BidHistory, bid)
		auction.CurrentBid = &bid

		ok, err := s.store.ReplaceAuction(ctx, auction)
		if err != nil {
			return nil, fmt.Errorf("failed to persist bid: %w", err)
		}
		if !ok {
			util.AuctionUpdateConflictsTotal.Inc()
			s.logger.Warn("Bid application lost a write race, retrying",
				zap.String("auction_id", req.AuctionID.String()),
				zap.Int("attempt", attempt))
			continue
		}

		util.BidsAcceptedTotal.Inc()
		s.refreshFloor(ctx, auction.ID, bid.Amount)
		s.logger.Info("Bid accepted",
			zap.String("auction_id", auction.ID.String()),
			zap.String("bid_id", bid.ID.String()),
			zap.String("user_id", bid.UserID.String()),
			zap.String("amount", bid.Amount.String()))
		return auction, nil
	}

	return nil, fmt.Errorf("bid on auction %s conflicted %d times, giving up",
		req.AuctionID, s.maxAttempts)
}

func (s *BidService) validate(ctx context.Context, auction *models.Auction, amount decimal.Decimal) error {
	if auction.Status != models.AuctionStatusActive {
		util.BidsRejectedTotal.WithLabelValues("not_active").Inc()
		return fmt.Errorf("%w: auction %s is %s", models.ErrAuctionNotActive, auction.ID, auction.Status)
	}

	if auction.EndDate != nil && time.Now().After(*auction.EndDate) {
		util.BidsRejectedTotal.WithLabelValues("expired").Inc()
		return fmt.Errorf("%w: auction %s ended %s", models.ErrAuctionExpired, auction.ID, auction.EndDate)
	}

	// Equal-to-floor bids lose: two racing bids of the same amount must
	// not both win.
	if floor := auction.Floor(); !amount.GreaterThan(floor) {
		util.BidsRejectedTotal.WithLabelValues("too_low").Inc()
		s.refreshFloor(ctx, auction.ID, floor)
		return fmt.Errorf("%w: floor %s", models.ErrBidTooLow, floor)
	}
	return nil
}

func (s *BidService) refreshFloor(ctx context.Context, auctionID uuid.UUID, floor decimal.Decimal) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetFloor(ctx, auctionID.String(), floor, floorCacheTTL); err != nil {
		s.logger.Warn("Failed to refresh floor cache",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
	}
}
