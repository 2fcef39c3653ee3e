package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// CreateAuctionRequest is the POST /auctions payload.
type CreateAuctionRequest struct {
	Title               string    `json:"title" validate:"required,max=200"`
	Description         string    `json:"description" validate:"max=4000"`
	StartingPrice       string    `json:"starting_price" validate:"required"`
	ReservePrice        *string   `json:"reserve_price,omitempty"`
	BuyNowPrice         *string   `json:"buy_now_price,omitempty"`
	EndsAt              time.Time `json:"ends_at" validate:"required"`
	AntiSnipeWindowSecs int64     `json:"anti_snipe_window_secs" validate:"min=0"`
	AutoBidAllowed      *bool     `json:"auto_bid_allowed,omitempty"`
}

// PlaceBidRequest is the POST /auctions/{id}/bids payload.
type PlaceBidRequest struct {
	Amount     string  `json:"amount" validate:"required"`
	MaxAutoBid *string `json:"max_auto_bid,omitempty"`
}

// WatchRequest is the PUT /auctions/{id}/watch payload.
type WatchRequest struct {
	NotifyOutbid     *bool `json:"notify_outbid,omitempty"`
	NotifyEndingSoon *bool `json:"notify_ending_soon,omitempty"`
}

// AuctionResponse is the wire form of an auction. The reserve amount is
// the seller's private information; other callers only see reserve_met.
type AuctionResponse struct {
	ID              uuid.UUID  `json:"id"`
	SellerID        uuid.UUID  `json:"seller_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	StartingPrice   string     `json:"starting_price"`
	ReservePrice    *string    `json:"reserve_price,omitempty"`
	ReserveMet      bool       `json:"reserve_met"`
	BuyNowPrice     *string    `json:"buy_now_price,omitempty"`
	CurrentBid      *string    `json:"current_bid,omitempty"`
	BidCount        int        `json:"bid_count"`
	EndsAt          time.Time  `json:"ends_at"`
	Extensions      int        `json:"extensions"`
	AutoBidAllowed  bool       `json:"auto_bid_allowed"`
	Status          string     `json:"status"`
	WinnerID        *uuid.UUID `json:"winner_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PlaceBidResponse reports an accepted bid.
type PlaceBidResponse struct {
	BidID          uuid.UUID `json:"bid_id"`
	AcceptedAmount string    `json:"accepted_amount"`
	IsLeader       bool      `json:"is_leader"`
	Extended       bool      `json:"extended"`
	EndsAt         time.Time `json:"ends_at"`
}

// BidResponse is the wire form of one bid in a listing. MaxAutoBid is
// deliberately absent: ceilings are private to their bidder.
type BidResponse struct {
	ID         uuid.UUID `json:"id"`
	BidderID   uuid.UUID `json:"bidder_id"`
	BidderName string    `json:"bidder_name,omitempty"`
	Amount     string    `json:"amount"`
	IsBuyNow   bool      `json:"is_buy_now"`
	Status     string    `json:"status"`
	PlacedAt   time.Time `json:"placed_at"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable error code and context.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func toAuctionResponse(a *auction.Auction, caller uuid.UUID) *AuctionResponse {
	resp := &AuctionResponse{
		ID:             a.ID,
		SellerID:       a.SellerID,
		Title:          a.Title,
		Description:    a.Description,
		StartingPrice:  a.StartingPrice.Amount().String(),
		ReserveMet:     a.ReserveMet(),
		BidCount:       a.BidCount,
		EndsAt:         a.EndsAt,
		Extensions:     a.Extensions,
		AutoBidAllowed: a.AutoBidAllowed,
		Status:         a.Status.String(),
		WinnerID:       a.WinnerID,
		CreatedAt:      a.CreatedAt,
	}
	if a.ReservePrice != nil && caller == a.SellerID {
		s := a.ReservePrice.Amount().String()
		resp.ReservePrice = &s
	}
	if a.BuyNowPrice != nil {
		s := a.BuyNowPrice.Amount().String()
		resp.BuyNowPrice = &s
	}
	if a.CurrentBid != nil {
		s := a.CurrentBid.Amount().String()
		resp.CurrentBid = &s
	}
	return resp
}

func toBidResponses(views []*bidding.BidView) []*BidResponse {
	out := make([]*BidResponse, 0, len(views))
	for _, v := range views {
		out = append(out, &BidResponse{
			ID:         v.ID,
			BidderID:   v.BidderID,
			BidderName: v.BidderName,
			Amount:     v.Amount.Amount().String(),
			IsBuyNow:   v.IsBuyNow,
			Status:     v.Status.String(),
			PlacedAt:   v.PlacedAt,
		})
	}
	return out
}
