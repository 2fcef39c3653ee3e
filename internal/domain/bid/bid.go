package bid

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/values"
)

// Bid is a single offer on an auction. Bids are created on successful
// validation and mutated only by status transitions, never deleted.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`

	Amount values.Credits `json:"amount"`
	// MaxAutoBid is the proxy ceiling; nil for plain bids.
	MaxAutoBid *values.Credits `json:"max_auto_bid,omitempty"`
	IsBuyNow   bool            `json:"is_buy_now"`

	Status Status `json:"status"`

	// Escrow bookkeeping. EscrowAmount mirrors the amount currently held
	// in the ledger against this bid; HoldID is the ledger's handle.
	HoldID           *uuid.UUID     `json:"hold_id,omitempty"`
	EscrowAmount     values.Credits `json:"escrow_amount"`
	EscrowReleasedAt *time.Time     `json:"escrow_released_at,omitempty"`

	PlacedAt  time.Time `json:"placed_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusActive Status = iota
	StatusOutbid
	StatusWinning
	StatusWon
	StatusLost
	StatusRefunded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusOutbid:
		return "outbid"
	case StatusWinning:
		return "winning"
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "outbid":
		return StatusOutbid
	case "winning":
		return StatusWinning
	case "won":
		return StatusWon
	case "lost":
		return StatusLost
	case "refunded":
		return StatusRefunded
	default:
		return StatusActive
	}
}

// NewBid creates a bid in the winning state pending escrow bookkeeping.
func NewBid(auctionID, bidderID uuid.UUID, amount values.Credits, maxAutoBid *values.Credits) *Bid {
	now := time.Now().UTC()
	return &Bid{
		ID:         uuid.New(),
		AuctionID:  auctionID,
		BidderID:   bidderID,
		Amount:     amount,
		MaxAutoBid: maxAutoBid,
		Status:     StatusWinning,
		PlacedAt:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasCeiling reports whether this bid carries a standing proxy instruction.
func (b *Bid) HasCeiling() bool {
	return b.MaxAutoBid != nil
}

// Ceiling returns the effective maximum this bid will pay: the proxy
// ceiling when present, otherwise the explicit amount.
func (b *Bid) Ceiling() values.Credits {
	if b.MaxAutoBid != nil {
		return *b.MaxAutoBid
	}
	return b.Amount
}

// AttachHold records the ledger hold backing this bid.
func (b *Bid) AttachHold(holdID uuid.UUID, amount values.Credits) {
	b.HoldID = &holdID
	b.EscrowAmount = amount
	b.UpdatedAt = time.Now().UTC()
}

// MarkOutbid releases the bid from contention. The release timestamp is
// only set when the bid actually had funds held.
func (b *Bid) MarkOutbid(now time.Time) {
	b.Status = StatusOutbid
	if b.HoldID != nil {
		b.EscrowReleasedAt = &now
	}
	b.EscrowAmount = values.ZeroCredits()
	b.UpdatedAt = now
}

// MarkWinning promotes the bid to current leader at the given price.
func (b *Bid) MarkWinning(price values.Credits, now time.Time) {
	b.Status = StatusWinning
	b.Amount = price
	b.UpdatedAt = now
}

// MarkWon finalizes the bid at settlement.
func (b *Bid) MarkWon(now time.Time) {
	b.Status = StatusWon
	b.UpdatedAt = now
}

// MarkLost finalizes a non-winning bid at settlement.
func (b *Bid) MarkLost(now time.Time) {
	b.Status = StatusLost
	b.UpdatedAt = now
}

// MarkRefunded records a released hold outside the normal outbid path
// (no-sale below reserve, cancellation, defensive cleanup).
func (b *Bid) MarkRefunded(now time.Time) {
	b.Status = StatusRefunded
	b.EscrowAmount = values.ZeroCredits()
	b.EscrowReleasedAt = &now
	b.UpdatedAt = now
}
