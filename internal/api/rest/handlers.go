package rest

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// decodeAndValidate parses the JSON body and runs struct validation.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, err)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = "failed " + fe.Tag() + " validation"
			}
		}
		s.writeValidationError(w, fields)
		return false
	}
	return true
}

// pathUUID parses a path parameter as a UUID.
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.writeValidationError(w, map[string]string{name: "must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// requireCaller resolves the authenticated caller or rejects the request.
func (s *Server) requireCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := callerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
			Code:    "UNAUTHENTICATED",
			Message: "Missing or invalid " + userIDHeader + " header",
		}})
		return uuid.Nil, false
	}
	return id, true
}

func parseCredits(field, raw string) (values.Credits, error) {
	c, err := values.NewCreditsFromString(raw)
	if err != nil || !c.IsPositive() {
		return values.ZeroCredits(), errors.NewValidationError("INVALID_AMOUNT",
			field+" must be a positive decimal string")
	}
	return c, nil
}

// handleCreateAuction stores a draft auction owned by the caller.
func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := s.requireCaller(w, r)
	if !ok {
		return
	}

	var req CreateAuctionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	starting, err := parseCredits("starting_price", req.StartingPrice)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	svcReq := &bidding.CreateAuctionRequest{
		SellerID:        sellerID,
		Title:           req.Title,
		Description:     req.Description,
		StartingPrice:   starting,
		EndsAt:          req.EndsAt,
		AntiSnipeWindow: time.Duration(req.AntiSnipeWindowSecs) * time.Second,
		AutoBidAllowed:  req.AutoBidAllowed == nil || *req.AutoBidAllowed,
	}
	if req.ReservePrice != nil {
		reserve, err := parseCredits("reserve_price", *req.ReservePrice)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		svcReq.ReservePrice = &reserve
	}
	if req.BuyNowPrice != nil {
		buyNow, err := parseCredits("buy_now_price", *req.BuyNowPrice)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		svcReq.BuyNowPrice = &buyNow
	}

	a, err := s.bidding.CreateAuction(r.Context(), svcReq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(a, sellerID))
}

// handlePublishAuction opens a draft auction for bidding.
func (s *Server) handlePublishAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.bidding.PublishAuction(r.Context(), auctionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.bidding.GetAuction(r.Context(), auctionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	caller, _ := callerID(r)
	writeJSON(w, http.StatusOK, toAuctionResponse(a, caller))
}

// handleGetAuction returns one auction.
func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := s.bidding.GetAuction(r.Context(), auctionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	caller, _ := callerID(r)
	writeJSON(w, http.StatusOK, toAuctionResponse(a, caller))
}

// handleCancelAuction withdraws an active auction; seller only.
func (s *Server) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.bidding.CancelAuction(r.Context(), auctionID, sellerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlaceBid places a bid, optionally with an auto-bid ceiling.
func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	bidderID, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req PlaceBidRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	amount, err := parseCredits("amount", req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	svcReq := &bidding.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	}
	if req.MaxAutoBid != nil {
		ceiling, err := parseCredits("max_auto_bid", *req.MaxAutoBid)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		svcReq.MaxAutoBid = &ceiling
	}

	result, err := s.bidding.PlaceBid(r.Context(), svcReq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &PlaceBidResponse{
		BidID:          result.BidID,
		AcceptedAmount: result.AcceptedAmount.Amount().String(),
		IsLeader:       result.IsLeader,
		Extended:       result.Extended,
		EndsAt:         result.EndsAt,
	})
}

// handleBuyNow settles the auction immediately at its buy-now price.
func (s *Server) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	bidderID, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	result, err := s.bidding.BuyNow(r.Context(), auctionID, bidderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &PlaceBidResponse{
		BidID:          result.BidID,
		AcceptedAmount: result.AcceptedAmount.Amount().String(),
		IsLeader:       result.IsLeader,
		Extended:       result.Extended,
		EndsAt:         result.EndsAt,
	})
}

// handleListBids returns an auction's bid history, newest first.
func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	views, err := s.bidding.ListBids(r.Context(), auctionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bids": toBidResponses(views),
	})
}

// handleWatch subscribes the caller to auction notifications.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	watcherID, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	// Body is optional; preferences default to on.
	req := WatchRequest{}
	if r.ContentLength > 0 {
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
	}

	svcReq := &bidding.WatchRequest{
		AuctionID:        auctionID,
		WatcherID:        watcherID,
		NotifyOutbid:     req.NotifyOutbid == nil || *req.NotifyOutbid,
		NotifyEndingSoon: req.NotifyEndingSoon == nil || *req.NotifyEndingSoon,
	}
	if err := s.bidding.Watch(r.Context(), svcReq); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnwatch removes the caller's subscription.
func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	watcherID, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.bidding.Unwatch(r.Context(), auctionID, watcherID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
