package broker

import (
	"context"
	"fmt"

	"auction-service/internal/models"
)

// EventPublisher fans auction outcomes out to the two downstream channels:
// the bidding-side sync topic and the storage-side outcome topic. Both are
// fire-and-forget from the orchestrator's point of view; a failed publish
// surfaces as an error for the caller to log, never to abort on.
type EventPublisher struct {
	syncProducer    *Producer
	storageProducer *Producer
}

// NewEventPublisher creates a new event publisher over per-topic producers
func NewEventPublisher(syncProducer, storageProducer *Producer) *EventPublisher {
	return &EventPublisher{
		syncProducer:    syncProducer,
		storageProducer: storageProducer,
	}
}

// PublishAuctionSync publishes a closed auction's state to the bidding side
func (ep *EventPublisher) PublishAuctionSync(ctx context.Context, msg *models.AuctionSyncMessage) error {
	key := fmt.Sprintf("auction-%s", msg.AuctionID)
	return ep.syncProducer.Publish(ctx, key, msg)
}

// PublishEffectOutcome publishes a lot's final outcome to the storage side
func (ep *EventPublisher) PublishEffectOutcome(ctx context.Context, msg *models.EffectOutcomeMessage) error {
	key := fmt.Sprintf("effect-%s", msg.EffectID)
	return ep.storageProducer.Publish(ctx, key, msg)
}
