package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/values"
)

// AuctionBuilder builds test auctions. Defaults describe a healthy active
// auction ending in one hour.
type AuctionBuilder struct {
	id              uuid.UUID
	sellerID        uuid.UUID
	title           string
	startingPrice   values.Credits
	reservePrice    *values.Credits
	buyNowPrice     *values.Credits
	currentBid      *values.Credits
	bidCount        int
	endsAt          time.Time
	antiSnipeWindow time.Duration
	extensions      int
	autoBidAllowed  bool
	status          auction.Status
}

// NewAuctionBuilder creates a builder with defaults.
func NewAuctionBuilder() *AuctionBuilder {
	return &AuctionBuilder{
		id:              uuid.New(),
		sellerID:        uuid.New(),
		title:           "Vintage synthesizer",
		startingPrice:   values.MustCredits(100),
		endsAt:          time.Now().UTC().Add(time.Hour),
		antiSnipeWindow: 2 * time.Minute,
		autoBidAllowed:  true,
		status:          auction.StatusActive,
	}
}

func (b *AuctionBuilder) WithID(id uuid.UUID) *AuctionBuilder {
	b.id = id
	return b
}

func (b *AuctionBuilder) WithSellerID(sellerID uuid.UUID) *AuctionBuilder {
	b.sellerID = sellerID
	return b
}

func (b *AuctionBuilder) WithStartingPrice(amount int64) *AuctionBuilder {
	b.startingPrice = values.MustCredits(amount)
	return b
}

func (b *AuctionBuilder) WithReservePrice(amount int64) *AuctionBuilder {
	reserve := values.MustCredits(amount)
	b.reservePrice = &reserve
	return b
}

func (b *AuctionBuilder) WithBuyNowPrice(amount int64) *AuctionBuilder {
	buyNow := values.MustCredits(amount)
	b.buyNowPrice = &buyNow
	return b
}

func (b *AuctionBuilder) WithCurrentBid(amount int64, count int) *AuctionBuilder {
	current := values.MustCredits(amount)
	b.currentBid = &current
	b.bidCount = count
	return b
}

func (b *AuctionBuilder) WithEndsAt(endsAt time.Time) *AuctionBuilder {
	b.endsAt = endsAt
	return b
}

func (b *AuctionBuilder) WithAntiSnipeWindow(window time.Duration) *AuctionBuilder {
	b.antiSnipeWindow = window
	return b
}

func (b *AuctionBuilder) WithAutoBidAllowed(allowed bool) *AuctionBuilder {
	b.autoBidAllowed = allowed
	return b
}

func (b *AuctionBuilder) WithStatus(status auction.Status) *AuctionBuilder {
	b.status = status
	return b
}

// Build assembles the auction.
func (b *AuctionBuilder) Build() *auction.Auction {
	now := time.Now().UTC()
	return &auction.Auction{
		ID:              b.id,
		SellerID:        b.sellerID,
		Title:           b.title,
		StartingPrice:   b.startingPrice,
		ReservePrice:    b.reservePrice,
		BuyNowPrice:     b.buyNowPrice,
		CurrentBid:      b.currentBid,
		BidCount:        b.bidCount,
		EndsAt:          b.endsAt,
		OriginalEndsAt:  b.endsAt,
		AntiSnipeWindow: b.antiSnipeWindow,
		Extensions:      b.extensions,
		AutoBidAllowed:  b.autoBidAllowed,
		Status:          b.status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
