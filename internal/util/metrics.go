package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_accepted_total",
		Help: "Total number of bids accepted",
	})

	BidsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Total number of bids rejected",
	}, []string{"reason"})

	AuctionUpdateConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_update_conflicts_total",
		Help: "Total number of version conflicts on auction replace",
	})

	BidApplyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bid_apply_latency_seconds",
		Help:    "Latency of bid application",
		Buckets: prometheus.DefBuckets,
	})

	AuctionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_created_total",
		Help: "Total number of auctions created",
	})

	AuctionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_closed_total",
		Help: "Total number of auctions closed during finalization",
	})

	CatalogsFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogs_finalized_total",
		Help: "Total number of catalogs finalized",
	})

	OutcomePublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outcome_publish_failures_total",
		Help: "Total number of failed outcome publishes",
	}, []string{"channel"})

	IngestedBidsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingested_bids_total",
		Help: "Total number of bid messages consumed from the ingestion channel",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
