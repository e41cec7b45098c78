package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Auction statuses
const (
	AuctionStatusInactive = "INACTIVE"
	AuctionStatusActive   = "ACTIVE"
	AuctionStatusClosed   = "CLOSED"
)

// Catalog statuses
const (
	CatalogStatusActive = "ACTIVE"
	CatalogStatusClosed = "CLOSED"
)

// Bid represents a single accepted offer on an auction. Timestamp is
// server-assigned at acceptance, never taken from the submitter.
type Bid struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Effect is the external item/lot an auction sells. Its ID is required to
// report outcomes to the storage side.
type Effect struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	AssessmentPrice decimal.Decimal `json:"assessment_price"`
	ConditionReport string          `json:"condition_report,omitempty"`
	Picture         string          `json:"picture,omitempty"`
	Category        string          `json:"category,omitempty"`
}

// Auction represents a sellable lot accepting successively higher bids.
// An INACTIVE auction has no catalog and cannot accept bids.
type Auction struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	CatalogID  *uuid.UUID      `json:"catalog_id,omitempty"`
	MinPrice   decimal.Decimal `json:"min_price"`
	CurrentBid *Bid            `json:"current_bid,omitempty"`
	BidHistory []Bid           `json:"bid_history"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
	Effect     *Effect         `json:"effect,omitempty"`

	// Version guards the full-record replace against concurrent writers.
	Version int64 `json:"version"`
}

// Floor returns the amount a new bid must strictly exceed: the current
// winning bid if present, else the highest accepted bid in history, else
// the minimum price.
func (a *Auction) Floor() decimal.Decimal {
	if a.CurrentBid != nil {
		return a.CurrentBid.Amount
	}
	floor := a.MinPrice
	for _, b := range a.BidHistory {
		if b.Amount.GreaterThan(floor) {
			floor = b.Amount
		}
	}
	return floor
}

// IsSold reports whether the auction has an accepted winning bid.
func (a *Auction) IsSold() bool {
	return a.CurrentBid != nil
}

// Catalog is a time-boxed group of auctions sharing a common end date.
// Once CLOSED it never reopens.
type Catalog struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`

	// FinalizedAt stamps the finalization epoch; it stays fixed across
	// retried finalizations so outbound idempotency keys are stable.
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// Expired reports whether the catalog deadline has passed at the given instant.
func (c *Catalog) Expired(now time.Time) bool {
	return now.After(c.EndDate)
}
