package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidMessage is the inbound bid record consumed from the bid-submissions
// topic. Timestamp is advisory; the acceptance instant is server-assigned.
type BidMessage struct {
	BidID     uuid.UUID       `json:"bid_id"`
	UserID    uuid.UUID       `json:"user_id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// AuctionSyncMessage is the bidding-side outcome published on the
// auction-sync topic when an auction closes.
type AuctionSyncMessage struct {
	AuctionID      uuid.UUID       `json:"auction_id"`
	Status         string          `json:"status"`
	MinBid         decimal.Decimal `json:"min_bid"`
	CurrentBid     decimal.Decimal `json:"current_bid"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// EffectOutcomeMessage is the storage-side outcome published on the
// auction-storage topic. WinnerUserID and FinalPrice are nil for unsold lots.
type EffectOutcomeMessage struct {
	EffectID       uuid.UUID        `json:"effect_id"`
	WinnerUserID   *uuid.UUID       `json:"winner_user_id,omitempty"`
	FinalPrice     *decimal.Decimal `json:"final_price,omitempty"`
	IsSold         bool             `json:"is_sold"`
	IdempotencyKey string           `json:"idempotency_key"`
}
