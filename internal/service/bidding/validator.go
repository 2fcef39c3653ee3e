package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
)

// validator applies the bid admission rules in order; the first failure
// wins. It has no side effects beyond reading the ledger balance.
type validator struct {
	ledger          Ledger
	increment       values.Credits
	maxProxyCeiling values.Credits // zero means unbounded
}

func newValidator(ledger Ledger, increment, maxProxyCeiling values.Credits) *validator {
	return &validator{
		ledger:          ledger,
		increment:       increment,
		maxProxyCeiling: maxProxyCeiling,
	}
}

// admit checks a candidate bid against an already-locked auction row.
func (v *validator) admit(ctx context.Context, a *auction.Auction, req *PlaceBidRequest, now time.Time) error {
	if !a.AcceptsBids(now) {
		return errors.ErrAuctionNotActive
	}
	if req.BidderID == a.SellerID {
		return errors.ErrSellerCannotBid
	}

	minimum := a.MinimumBid(v.increment)
	if req.Amount.LessThan(minimum) {
		return errors.NewBidTooLowError(minimum.String())
	}

	if req.MaxAutoBid != nil {
		if !a.AutoBidAllowed {
			return errors.NewBusinessError("AUTO_BID_DISABLED",
				"Auction does not accept auto-bids")
		}
		if req.MaxAutoBid.LessThan(req.Amount) {
			return errors.ErrCeilingBelowAmount
		}
		if v.maxProxyCeiling.IsPositive() && req.MaxAutoBid.GreaterThan(v.maxProxyCeiling) {
			return errors.NewValidationError("CEILING_TOO_HIGH",
				"Auto-bid ceiling exceeds the configured maximum").
				WithDetails(map[string]interface{}{"max_ceiling": v.maxProxyCeiling.String()})
		}
	}

	available, err := v.ledger.AvailableBalance(ctx, req.BidderID)
	if err != nil {
		return err
	}
	if available.LessThan(req.Amount) {
		return errors.NewInsufficientFundsError("Available balance is below the bid amount")
	}

	return nil
}

// admitBuyNow checks the short-circuit path. Increment rules do not apply;
// the buyer pays exactly the buy-now price.
func (v *validator) admitBuyNow(ctx context.Context, a *auction.Auction, bidderID uuid.UUID, now time.Time) (values.Credits, error) {
	if !a.AcceptsBids(now) {
		return values.ZeroCredits(), errors.ErrAuctionNotActive
	}
	if bidderID == a.SellerID {
		return values.ZeroCredits(), errors.ErrSellerCannotBid
	}
	if a.BuyNowPrice == nil {
		return values.ZeroCredits(), errors.ErrBuyNowUnavailable
	}
	price := *a.BuyNowPrice

	available, err := v.ledger.AvailableBalance(ctx, bidderID)
	if err != nil {
		return values.ZeroCredits(), err
	}
	if available.LessThan(price) {
		return values.ZeroCredits(), errors.NewInsufficientFundsError("Available balance is below the buy-now price")
	}
	return price, nil
}
