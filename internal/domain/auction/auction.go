package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
)

// Auction is a timed listing accepting competitive bids. Title and
// description are opaque to the engine; pricing, deadline, and status are
// its single source of truth.
type Auction struct {
	ID          uuid.UUID `json:"id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`

	StartingPrice values.Credits  `json:"starting_price"`
	ReservePrice  *values.Credits `json:"reserve_price,omitempty"`
	BuyNowPrice   *values.Credits `json:"buy_now_price,omitempty"`

	CurrentBid *values.Credits `json:"current_bid,omitempty"`
	BidCount   int             `json:"bid_count"`

	// EndsAt advances under anti-snipe; OriginalEndsAt never changes and
	// preserves the audit baseline for total extension.
	EndsAt         time.Time `json:"ends_at"`
	OriginalEndsAt time.Time `json:"original_ends_at"`

	AntiSnipeWindow time.Duration `json:"anti_snipe_window"`
	Extensions      int           `json:"extensions"`
	AutoBidAllowed  bool          `json:"auto_bid_allowed"`

	Status   Status     `json:"status"`
	WinnerID *uuid.UUID `json:"winner_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusDraft Status = iota
	StatusActive
	StatusEnded
	StatusSold
	StatusCancelled
	StatusNoSale
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	case StatusSold:
		return "sold"
	case StatusCancelled:
		return "cancelled"
	case StatusNoSale:
		return "no_sale"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "draft":
		return StatusDraft
	case "active":
		return StatusActive
	case "ended":
		return StatusEnded
	case "sold":
		return StatusSold
	case "cancelled":
		return StatusCancelled
	case "no_sale":
		return StatusNoSale
	default:
		return StatusDraft
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSold, StatusCancelled, StatusNoSale:
		return true
	default:
		return false
	}
}

// NewAuction creates a draft auction.
func NewAuction(sellerID uuid.UUID, title string, startingPrice values.Credits, endsAt time.Time, antiSnipeWindow time.Duration) *Auction {
	now := time.Now().UTC()
	return &Auction{
		ID:              uuid.New(),
		SellerID:        sellerID,
		Title:           title,
		StartingPrice:   startingPrice,
		EndsAt:          endsAt,
		OriginalEndsAt:  endsAt,
		AntiSnipeWindow: antiSnipeWindow,
		AutoBidAllowed:  true,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Publish transitions draft to active, validating the price relationships
// and that the deadline is still in the future.
func (a *Auction) Publish(now time.Time) error {
	if a.Status != StatusDraft {
		return errors.ErrAlreadyPublished
	}
	if !a.EndsAt.After(now) {
		return errors.ErrEndTimeInPast
	}
	if a.BuyNowPrice != nil && !a.BuyNowPrice.GreaterThan(a.StartingPrice) {
		return errors.ErrInvalidPriceRelationship
	}
	if a.ReservePrice != nil && !a.ReservePrice.GreaterThan(a.StartingPrice) {
		return errors.ErrInvalidPriceRelationship
	}
	a.Status = StatusActive
	a.UpdatedAt = now
	return nil
}

// AcceptsBids reports whether a bid arriving at now can be admitted.
func (a *Auction) AcceptsBids(now time.Time) bool {
	return a.Status == StatusActive && now.Before(a.EndsAt)
}

// MinimumBid returns the lowest acceptable bid amount given the increment.
func (a *Auction) MinimumBid(increment values.Credits) values.Credits {
	if a.CurrentBid != nil {
		return a.CurrentBid.Add(increment)
	}
	return a.StartingPrice
}

// RecordBid updates the running price and count. Price monotonicity is
// enforced by the validator before this is called.
func (a *Auction) RecordBid(amount values.Credits, now time.Time) {
	a.CurrentBid = &amount
	a.BidCount++
	a.UpdatedAt = now
}

// ExtendDeadline applies an anti-snipe extension when the bid lands inside
// the trailing window. maxExtensions of zero means unbounded. EndsAt never
// decreases. Returns true when the deadline moved.
func (a *Auction) ExtendDeadline(now time.Time, maxExtensions int) bool {
	if a.AntiSnipeWindow <= 0 {
		return false
	}
	if now.Before(a.EndsAt.Add(-a.AntiSnipeWindow)) {
		return false
	}
	if maxExtensions > 0 && a.Extensions >= maxExtensions {
		return false
	}
	extended := now.Add(a.AntiSnipeWindow)
	if !extended.After(a.EndsAt) {
		return false
	}
	a.EndsAt = extended
	a.Extensions++
	a.UpdatedAt = now
	return true
}

// ReserveMet reports whether the current bid satisfies the reserve price.
// Auctions without a reserve always satisfy it.
func (a *Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	return a.CurrentBid != nil && a.CurrentBid.GreaterThanOrEqual(*a.ReservePrice)
}

// MarkSold finalizes a successful settlement.
func (a *Auction) MarkSold(winnerID uuid.UUID, now time.Time) {
	a.Status = StatusSold
	a.WinnerID = &winnerID
	a.UpdatedAt = now
}

// MarkNoSale finalizes settlement without a winner.
func (a *Auction) MarkNoSale(now time.Time) {
	a.Status = StatusNoSale
	a.UpdatedAt = now
}

// MarkCancelled finalizes a seller cancellation.
func (a *Auction) MarkCancelled(now time.Time) {
	a.Status = StatusCancelled
	a.UpdatedAt = now
}
