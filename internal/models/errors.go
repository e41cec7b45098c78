package models

import "errors"

// Domain errors surfaced synchronously to callers. Infrastructure failures
// (store or broker I/O) are wrapped separately and never match these.
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrCatalogNotFound  = errors.New("catalog not found")
	ErrAuctionNotActive = errors.New("auction not active")
	ErrAuctionExpired   = errors.New("auction end date passed")
	ErrBidTooLow        = errors.New("bid does not exceed current floor")
	ErrNoAuctions       = errors.New("catalog has no auctions")
)

// IsDomainError reports whether err is (or wraps) one of the domain
// errors above, as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	for _, domain := range []error{
		ErrAuctionNotFound,
		ErrCatalogNotFound,
		ErrAuctionNotActive,
		ErrAuctionExpired,
		ErrBidTooLow,
		ErrNoAuctions,
	} {
		if errors.Is(err, domain) {
			return true
		}
	}
	return false
}
