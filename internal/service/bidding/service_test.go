package bidding_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
	"github.com/clearbid/auction-engine/internal/service/bidding"
	"github.com/clearbid/auction-engine/internal/testutil/fixtures"
	"github.com/clearbid/auction-engine/internal/testutil/mocks"
)

type serviceMocks struct {
	auctions *mocks.AuctionRepository
	bids     *mocks.BidRepository
	watches  *mocks.WatchRepository
	ledger   *mocks.Ledger
	notifier *mocks.Notifier
	profiles *mocks.ProfileReader
}

func newTestService(t *testing.T) (bidding.Service, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		auctions: new(mocks.AuctionRepository),
		bids:     new(mocks.BidRepository),
		watches:  new(mocks.WatchRepository),
		ledger:   new(mocks.Ledger),
		notifier: new(mocks.Notifier),
		profiles: new(mocks.ProfileReader),
	}
	// Fan-out runs on its own goroutine after commit; tests assert state,
	// not delivery timing.
	m.notifier.On("LeaderChanged", mock.Anything, mock.Anything).Maybe()
	m.notifier.On("AuctionSettled", mock.Anything, mock.Anything).Maybe()

	cfg := &config.AuctionConfig{
		MinIncrement:    10,
		AntiSnipeWindow: 2 * time.Minute,
	}
	svc := bidding.NewService(
		m.auctions, m.bids, m.watches,
		m.ledger, mocks.TxRunner{}, m.notifier, m.profiles, mocks.MetricsCollector{},
		cfg, zap.NewNop(),
	)
	return svc, m
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestService_PlaceBid_FirstBid(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().Build()
	bidderID := uuid.New()
	holdID := uuid.New()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, bidderID).Return(values.MustCredits(1000), nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(nil, nil)
	m.bids.On("ListStandingProxies", ctx, a.ID).Return([]*bid.Bid{}, nil)
	m.ledger.On("Hold", ctx, bidderID, values.MustCredits(100), a.ID.String()).Return(holdID, nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    values.MustCredits(100),
	})

	require.NoError(t, err)
	assert.True(t, result.IsLeader)
	assert.True(t, result.AcceptedAmount.Equal(values.MustCredits(100)))
	assert.False(t, result.Extended)
	assert.Equal(t, 1, a.BidCount)
	require.NotNil(t, a.CurrentBid)
	assert.True(t, a.CurrentBid.Equal(values.MustCredits(100)))
	m.ledger.AssertExpectations(t)
	m.bids.AssertExpectations(t)
}

func TestService_PlaceBid_Rejections(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()
	bidderID := uuid.New()

	tests := []struct {
		name     string
		auction  func() *auction.Auction
		request  func(a *auction.Auction) *bidding.PlaceBidRequest
		balance  int64
		wantCode string
	}{
		{
			name: "draft auction rejects bids",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().WithStatus(auction.StatusDraft).Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, Amount: values.MustCredits(100)}
			},
			wantCode: "AUCTION_NOT_ACTIVE",
		},
		{
			name: "expired auction rejects bids",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().WithEndsAt(time.Now().UTC().Add(-time.Minute)).Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, Amount: values.MustCredits(100)}
			},
			wantCode: "AUCTION_NOT_ACTIVE",
		},
		{
			name: "seller cannot bid",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().WithSellerID(sellerID).Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: sellerID, Amount: values.MustCredits(100)}
			},
			wantCode: "SELLER_CANNOT_BID",
		},
		{
			name: "bid below minimum",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().WithCurrentBid(150, 2).Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, Amount: values.MustCredits(155)}
			},
			wantCode: "BID_TOO_LOW",
		},
		{
			name: "ceiling below amount",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				ceiling := values.MustCredits(90)
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, Amount: values.MustCredits(100), MaxAutoBid: &ceiling}
			},
			wantCode: "CEILING_BELOW_AMOUNT",
		},
		{
			name: "auto-bid on auction that disallows it",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().WithAutoBidAllowed(false).Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				ceiling := values.MustCredits(300)
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, Amount: values.MustCredits(100), MaxAutoBid: &ceiling}
			},
			wantCode: "AUTO_BID_DISABLED",
		},
		{
			name: "insufficient funds",
			auction: func() *auction.Auction {
				return fixtures.NewAuctionBuilder().Build()
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, Amount: values.MustCredits(100)}
			},
			balance:  50,
			wantCode: "INSUFFICIENT_FUNDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t)
			a := tt.auction()
			balance := tt.balance
			if balance == 0 {
				balance = 1000
			}

			m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
			m.ledger.On("AvailableBalance", ctx, mock.Anything).Return(values.MustCredits(balance), nil).Maybe()

			_, err := svc.PlaceBid(ctx, tt.request(a))

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, appErrCode(t, err))
			m.bids.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			m.ledger.AssertNotCalled(t, "Hold", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_PlaceBid_BidTooLowCarriesMinimum(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().WithCurrentBid(150, 1).Build()
	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)

	_, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  uuid.New(),
		Amount:    values.MustCredits(150),
	})

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "BID_TOO_LOW", appErr.Code)
	assert.Equal(t, "160 CR", appErr.Details["minimum_amount"])
}

func TestService_PlaceBid_OutbidsPreviousLeader(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().WithCurrentBid(150, 1).Build()
	prevHold := uuid.New()
	prev := fixtures.NewBidBuilder().
		WithAuctionID(a.ID).
		WithAmount(150).
		WithHold(prevHold, 150).
		Build()
	bidderID := uuid.New()
	newHold := uuid.New()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, bidderID).Return(values.MustCredits(1000), nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(prev, nil)
	m.bids.On("ListStandingProxies", ctx, a.ID).Return([]*bid.Bid{}, nil)
	m.ledger.On("Release", ctx, prevHold).Return(nil)
	m.ledger.On("Hold", ctx, bidderID, values.MustCredits(200), a.ID.String()).Return(newHold, nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Return(nil)
	m.bids.On("Update", ctx, prev).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    values.MustCredits(200),
	})

	require.NoError(t, err)
	assert.True(t, result.IsLeader)
	assert.Equal(t, bid.StatusOutbid, prev.Status)
	assert.NotNil(t, prev.EscrowReleasedAt)
	m.ledger.AssertExpectations(t)
}

func TestService_PlaceBid_StandingProxyDefendsLead(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().WithCurrentBid(150, 1).Build()
	proxyHold := uuid.New()
	proxy := fixtures.NewBidBuilder().
		WithAuctionID(a.ID).
		WithAmount(150).
		WithCeiling(400).
		WithHold(proxyHold, 150).
		WithPlacedAt(time.Now().UTC().Add(-time.Minute)).
		Build()
	bidderID := uuid.New()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, bidderID).Return(values.MustCredits(1000), nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(proxy, nil)
	m.bids.On("ListStandingProxies", ctx, a.ID).Return([]*bid.Bid{proxy}, nil)
	m.ledger.On("AdjustHold", ctx, proxyHold, values.MustCredits(210)).Return(nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Run(func(args mock.Arguments) {
		created := args.Get(1).(*bid.Bid)
		assert.Equal(t, bid.StatusOutbid, created.Status,
			"a bid that lost the replay is stored outbid")
		assert.Nil(t, created.HoldID, "a losing bid never held funds")
	}).Return(nil)
	m.bids.On("Update", ctx, proxy).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    values.MustCredits(200),
	})

	require.NoError(t, err)
	assert.False(t, result.IsLeader, "the standing proxy defends the lead")
	assert.True(t, result.AcceptedAmount.Equal(values.MustCredits(210)),
		"price steps to the challenger amount plus increment")
	assert.Equal(t, bid.StatusWinning, proxy.Status)
	assert.True(t, proxy.EscrowAmount.Equal(values.MustCredits(210)))
	m.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	m.ledger.AssertExpectations(t)
}

func TestService_PlaceBid_SameBidderRaisesOwnLead(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().WithCurrentBid(150, 1).Build()
	bidderID := uuid.New()
	holdID := uuid.New()
	prev := fixtures.NewBidBuilder().
		WithAuctionID(a.ID).
		WithBidderID(bidderID).
		WithAmount(150).
		WithHold(holdID, 150).
		Build()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, bidderID).Return(values.MustCredits(1000), nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(prev, nil)
	m.bids.On("ListStandingProxies", ctx, a.ID).Return([]*bid.Bid{}, nil)
	m.ledger.On("AdjustHold", ctx, holdID, values.MustCredits(200)).Return(nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Return(nil)
	m.bids.On("Update", ctx, prev).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    values.MustCredits(200),
	})

	require.NoError(t, err)
	assert.True(t, result.IsLeader)
	assert.Nil(t, prev.HoldID, "the hold moves to the new bid row")
	assert.Equal(t, bid.StatusOutbid, prev.Status)
	// Funds were adjusted in place, never released or re-held.
	m.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	m.ledger.AssertNotCalled(t, "Hold", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.ledger.AssertExpectations(t)
}

func TestService_PlaceBid_AntiSnipeExtension(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	endsAt := time.Now().UTC().Add(time.Minute)
	a := fixtures.NewAuctionBuilder().WithEndsAt(endsAt).Build()
	bidderID := uuid.New()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, bidderID).Return(values.MustCredits(1000), nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(nil, nil)
	m.bids.On("ListStandingProxies", ctx, a.ID).Return([]*bid.Bid{}, nil)
	m.ledger.On("Hold", ctx, bidderID, mock.Anything, a.ID.String()).Return(uuid.New(), nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    values.MustCredits(100),
	})

	require.NoError(t, err)
	assert.True(t, result.Extended)
	assert.True(t, a.EndsAt.After(endsAt))
	assert.Equal(t, endsAt, a.OriginalEndsAt)
	assert.Equal(t, 1, a.Extensions)
}

func TestService_PlaceBid_CompensatesLedgerOnFailure(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().Build()
	bidderID := uuid.New()
	holdID := uuid.New()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, bidderID).Return(values.MustCredits(1000), nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(nil, nil)
	m.bids.On("ListStandingProxies", ctx, a.ID).Return([]*bid.Bid{}, nil)
	m.ledger.On("Hold", ctx, bidderID, values.MustCredits(100), a.ID.String()).Return(holdID, nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Return(assert.AnError)
	// The transaction aborts, so the hold placed above must be undone.
	m.ledger.On("Release", ctx, holdID).Return(nil)

	_, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    values.MustCredits(100),
	})

	require.Error(t, err)
	m.ledger.AssertCalled(t, "Release", ctx, holdID)
}

func TestService_BuyNow(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().WithBuyNowPrice(500).WithCurrentBid(150, 1).Build()
	prevHold := uuid.New()
	prev := fixtures.NewBidBuilder().
		WithAuctionID(a.ID).
		WithAmount(150).
		WithHold(prevHold, 150).
		Build()
	buyerID := uuid.New()
	buyHold := uuid.New()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.ledger.On("AvailableBalance", ctx, buyerID).Return(values.MustCredits(1000), nil)
	m.ledger.On("Hold", ctx, buyerID, values.MustCredits(500), a.ID.String()).Return(buyHold, nil)
	m.bids.On("ListOpen", ctx, a.ID).Return([]*bid.Bid{prev}, nil)
	m.ledger.On("Release", ctx, prevHold).Return(nil)
	m.bids.On("Update", ctx, prev).Return(nil)
	m.bids.On("Create", ctx, mock.AnythingOfType("*bid.Bid")).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)
	m.ledger.On("TransferFromHold", ctx, buyHold, a.SellerID).Return(nil)

	result, err := svc.BuyNow(ctx, a.ID, buyerID)

	require.NoError(t, err)
	assert.True(t, result.IsLeader)
	assert.True(t, result.AcceptedAmount.Equal(values.MustCredits(500)))
	assert.Equal(t, auction.StatusSold, a.Status)
	require.NotNil(t, a.WinnerID)
	assert.Equal(t, buyerID, *a.WinnerID)
	assert.Equal(t, bid.StatusLost, prev.Status)
	m.ledger.AssertExpectations(t)
}

func TestService_BuyNow_Unavailable(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().Build()
	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)

	_, err := svc.BuyNow(ctx, a.ID, uuid.New())

	assert.Equal(t, "BUY_NOW_UNAVAILABLE", appErrCode(t, err))
	m.ledger.AssertNotCalled(t, "Hold", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CancelAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("seller cancels and holds are refunded", func(t *testing.T) {
		svc, m := newTestService(t)
		a := fixtures.NewAuctionBuilder().WithCurrentBid(150, 1).Build()
		holdID := uuid.New()
		leader := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithHold(holdID, 150).Build()

		m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
		m.bids.On("ListOpen", ctx, a.ID).Return([]*bid.Bid{leader}, nil)
		m.ledger.On("Release", ctx, holdID).Return(nil)
		m.bids.On("Update", ctx, leader).Return(nil)
		m.auctions.On("Update", ctx, a).Return(nil)

		require.NoError(t, svc.CancelAuction(ctx, a.ID, a.SellerID))
		assert.Equal(t, auction.StatusCancelled, a.Status)
		assert.Equal(t, bid.StatusRefunded, leader.Status)
		m.ledger.AssertExpectations(t)
	})

	t.Run("non-seller cannot cancel", func(t *testing.T) {
		svc, m := newTestService(t)
		a := fixtures.NewAuctionBuilder().Build()
		m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)

		err := svc.CancelAuction(ctx, a.ID, uuid.New())
		assert.Equal(t, "NOT_SELLER", appErrCode(t, err))
	})

	t.Run("terminal auction cannot be cancelled", func(t *testing.T) {
		svc, m := newTestService(t)
		a := fixtures.NewAuctionBuilder().WithStatus(auction.StatusSold).Build()
		m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)

		err := svc.CancelAuction(ctx, a.ID, a.SellerID)
		assert.Equal(t, "AUCTION_NOT_ACTIVE", appErrCode(t, err))
	})
}

func TestService_PublishAuction(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().WithStatus(auction.StatusDraft).Build()
	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	require.NoError(t, svc.PublishAuction(ctx, a.ID))
	assert.Equal(t, auction.StatusActive, a.Status)
}

func TestService_ListBids(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := fixtures.NewAuctionBuilder().Build()
	bidderID := uuid.New()
	first := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithBidderID(bidderID).Build()
	second := fixtures.NewBidBuilder().WithAuctionID(a.ID).Build()

	m.auctions.On("GetByID", ctx, a.ID).Return(a, nil)
	m.bids.On("ListByAuction", ctx, a.ID).Return([]*bid.Bid{first, second}, nil)
	m.profiles.On("DisplayName", ctx, bidderID).Return("synth_collector", nil)
	// Second bidder's profile lookup fails; the listing degrades.
	m.profiles.On("DisplayName", ctx, second.BidderID).Return("", assert.AnError)

	views, err := svc.ListBids(ctx, a.ID)

	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "synth_collector", views[0].BidderName)
	assert.Equal(t, "", views[1].BidderName)
}

func TestService_WatchRequiresAuction(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	missing := uuid.New()
	m.auctions.On("GetByID", ctx, missing).Return(nil, errors.ErrAuctionNotFound)

	err := svc.Watch(ctx, &bidding.WatchRequest{AuctionID: missing, WatcherID: uuid.New()})
	assert.ErrorIs(t, err, errors.ErrAuctionNotFound)
	m.watches.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
