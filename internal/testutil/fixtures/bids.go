package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/values"
)

// BidBuilder builds test bids. Defaults describe a winning bid with a
// live hold backing its full amount.
type BidBuilder struct {
	id         uuid.UUID
	auctionID  uuid.UUID
	bidderID   uuid.UUID
	amount     values.Credits
	maxAutoBid *values.Credits
	status     bid.Status
	holdID     *uuid.UUID
	escrow     values.Credits
	placedAt   time.Time
}

// NewBidBuilder creates a builder with defaults.
func NewBidBuilder() *BidBuilder {
	holdID := uuid.New()
	return &BidBuilder{
		id:        uuid.New(),
		auctionID: uuid.New(),
		bidderID:  uuid.New(),
		amount:    values.MustCredits(150),
		status:    bid.StatusWinning,
		holdID:    &holdID,
		escrow:    values.MustCredits(150),
		placedAt:  time.Now().UTC(),
	}
}

func (b *BidBuilder) WithID(id uuid.UUID) *BidBuilder {
	b.id = id
	return b
}

func (b *BidBuilder) WithAuctionID(auctionID uuid.UUID) *BidBuilder {
	b.auctionID = auctionID
	return b
}

func (b *BidBuilder) WithBidderID(bidderID uuid.UUID) *BidBuilder {
	b.bidderID = bidderID
	return b
}

func (b *BidBuilder) WithAmount(amount int64) *BidBuilder {
	b.amount = values.MustCredits(amount)
	b.escrow = values.MustCredits(amount)
	return b
}

func (b *BidBuilder) WithCeiling(amount int64) *BidBuilder {
	ceiling := values.MustCredits(amount)
	b.maxAutoBid = &ceiling
	return b
}

func (b *BidBuilder) WithStatus(status bid.Status) *BidBuilder {
	b.status = status
	return b
}

func (b *BidBuilder) WithHold(holdID uuid.UUID, escrow int64) *BidBuilder {
	b.holdID = &holdID
	b.escrow = values.MustCredits(escrow)
	return b
}

func (b *BidBuilder) WithoutHold() *BidBuilder {
	b.holdID = nil
	b.escrow = values.ZeroCredits()
	return b
}

func (b *BidBuilder) WithPlacedAt(placedAt time.Time) *BidBuilder {
	b.placedAt = placedAt
	return b
}

// Build assembles the bid.
func (b *BidBuilder) Build() *bid.Bid {
	return &bid.Bid{
		ID:           b.id,
		AuctionID:    b.auctionID,
		BidderID:     b.bidderID,
		Amount:       b.amount,
		MaxAutoBid:   b.maxAutoBid,
		Status:       b.status,
		HoldID:       b.holdID,
		EscrowAmount: b.escrow,
		PlacedAt:     b.placedAt,
		CreatedAt:    b.placedAt,
		UpdatedAt:    b.placedAt,
	}
}
