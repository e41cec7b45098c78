package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auction-service/internal/broker"
	"auction-service/internal/models"
	"auction-service/internal/service"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const seenBidTTL = 24 * time.Hour

// BidDeduper remembers recently seen bid ids so replayed submissions are
// dropped instead of re-applied. Satisfied by *redisclient.Client.
type BidDeduper interface {
	SeenBid(ctx context.Context, bidID string, ttl time.Duration) (bool, error)
}

// Consumer is the broker connection the worker consumes from. Satisfied by
// *broker.Consumer.
type Consumer interface {
	Ping(ctx context.Context) error
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// BidWorker is the asynchronous bid ingestion channel: it consumes bid
// submissions from the broker and feeds them into the bid acceptance
// engine. Consumption is at-most-once; a bid lost between receipt and
// processing is accepted, since HTTP submission remains the primary path.
type BidWorker struct {
	consumer Consumer
	bids     *service.BidService
	dedupe   BidDeduper
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// NewBidWorker creates a new bid worker. dedupe may be nil.
func NewBidWorker(consumer Consumer, bids *service.BidService, dedupe BidDeduper, attempts int, delay time.Duration) *BidWorker {
	if attempts < 1 {
		attempts = 1
	}
	return &BidWorker{
		consumer: consumer,
		bids:     bids,
		dedupe:   dedupe,
		attempts: attempts,
		delay:    delay,
		logger:   util.NamedLogger("bid-worker"),
	}
}

// Start connects to the broker with bounded retry and then consumes bid
// messages until the context is cancelled. Exhausting the connect attempts
// is terminal; the supervisor is expected to restart the process.
func (w *BidWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting bid worker",
		zap.Int("connect_attempts", w.attempts),
		zap.Duration("connect_delay", w.delay))

	connected := false
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if err := w.consumer.Ping(ctx); err != nil {
			w.logger.Warn("Broker connect attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt == w.attempts {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.delay):
			}
			continue
		}
		connected = true
		break
	}

	if !connected {
		w.logger.Error("Could not reach broker, bid worker stopping",
			zap.Int("attempts", w.attempts))
		return fmt.Errorf("broker unreachable after %d attempts", w.attempts)
	}

	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *BidWorker) Stop() error {
	w.logger.Info("Stopping bid worker")
	return w.consumer.Close()
}

// handleMessage processes one bid submission. It always returns nil:
// malformed payloads and rejected bids are logged and dropped, never
// retried.
func (w *BidWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var bid models.BidMessage
	if err := json.Unmarshal(msg.Value, &bid); err != nil {
		util.IngestedBidsTotal.WithLabelValues("malformed").Inc()
		w.logger.Error("Dropping malformed bid message", zap.Error(err))
		return nil
	}
	if bid.AuctionID == uuid.Nil {
		util.IngestedBidsTotal.WithLabelValues("malformed").Inc()
		w.logger.Error("Dropping bid message without auction id",
			zap.String("bid_id", bid.BidID.String()))
		return nil
	}

	if w.dedupe != nil && bid.BidID != uuid.Nil {
		seen, err := w.dedupe.SeenBid(ctx, bid.BidID.String(), seenBidTTL)
		if err != nil {
			w.logger.Warn("Bid dedupe check failed, processing anyway", zap.Error(err))
		} else if seen {
			util.IngestedBidsTotal.WithLabelValues("duplicate").Inc()
			w.logger.Info("Dropping replayed bid message",
				zap.String("bid_id", bid.BidID.String()))
			return nil
		}
	}

	_, err := w.bids.ApplyBid(ctx, &service.PlaceBidRequest{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
	})
	switch {
	case err == nil:
		util.IngestedBidsTotal.WithLabelValues("accepted").Inc()
		w.logger.Info("Bid from channel applied",
			zap.String("bid_id", bid.BidID.String()),
			zap.String("auction_id", bid.AuctionID.String()))
	case models.IsDomainError(err):
		util.IngestedBidsTotal.WithLabelValues("rejected").Inc()
		w.logger.Info("Bid from channel rejected",
			zap.String("bid_id", bid.BidID.String()),
			zap.String("auction_id", bid.AuctionID.String()),
			zap.String("reason", err.Error()))
	default:
		util.IngestedBidsTotal.WithLabelValues("error").Inc()
		w.logger.Error("Failed to apply bid from channel",
			zap.String("bid_id", bid.BidID.String()),
			zap.Error(err))
	}
	return nil
}
