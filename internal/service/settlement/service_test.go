package settlement

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
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
	"github.com/clearbid/auction-engine/internal/testutil/fixtures"
	"github.com/clearbid/auction-engine/internal/testutil/mocks"
)

type serviceMocks struct {
	auctions *mocks.AuctionRepository
	bids     *mocks.BidRepository
	ledger   *mocks.Ledger
	notifier *mocks.Notifier
}

func newTestService(t *testing.T) (Service, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		auctions: new(mocks.AuctionRepository),
		bids:     new(mocks.BidRepository),
		ledger:   new(mocks.Ledger),
		notifier: new(mocks.Notifier),
	}
	m.notifier.On("AuctionSettled", mock.Anything, mock.Anything).Maybe()
	m.notifier.On("AuctionEndingSoon", mock.Anything, mock.Anything, mock.Anything).Maybe()

	cfg := &config.AuctionConfig{
		SettleInterval:   30 * time.Second,
		SettleBatchSize:  100,
		EndingSoonWindow: 10 * time.Minute,
	}
	svc := NewService(
		m.auctions, m.bids, m.ledger, mocks.TxRunner{},
		m.notifier, mocks.MetricsCollector{}, cfg, zap.NewNop(),
	)
	return svc, m
}

func expiredAuction() *fixtures.AuctionBuilder {
	return fixtures.NewAuctionBuilder().WithEndsAt(time.Now().UTC().Add(-time.Minute))
}

func TestService_Settle_Idempotent(t *testing.T) {
	ctx := context.Background()

	t.Run("already settled auction is untouched", func(t *testing.T) {
		svc, m := newTestService(t)
		winnerID := uuid.New()
		a := expiredAuction().WithStatus(auction.StatusSold).Build()
		a.WinnerID = &winnerID

		m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)

		result, err := svc.Settle(ctx, a.ID)

		require.NoError(t, err)
		assert.True(t, result.AlreadySettled)
		assert.Equal(t, auction.StatusSold, result.Status)
		assert.Equal(t, &winnerID, result.WinnerID)
		m.auctions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "TransferFromHold", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("re-armed deadline is not expired anymore", func(t *testing.T) {
		svc, m := newTestService(t)
		// A late bid extended the deadline after the sweep picked this id up.
		a := fixtures.NewAuctionBuilder().WithEndsAt(time.Now().UTC().Add(time.Minute)).Build()

		m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)

		result, err := svc.Settle(ctx, a.ID)

		require.NoError(t, err)
		assert.True(t, result.AlreadySettled)
		assert.Equal(t, auction.StatusActive, a.Status)
		m.auctions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestService_Settle_NoBids(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := expiredAuction().Build()
	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(nil, nil)
	m.bids.On("ListOpen", ctx, a.ID).Return([]*bid.Bid{}, nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.Settle(ctx, a.ID)

	require.NoError(t, err)
	assert.False(t, result.AlreadySettled)
	assert.Equal(t, auction.StatusNoSale, result.Status)
	assert.Nil(t, result.WinnerID)
}

func TestService_Settle_ReserveNotMet(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := expiredAuction().WithReservePrice(300).WithCurrentBid(150, 1).Build()
	holdID := uuid.New()
	leader := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithAmount(150).WithHold(holdID, 150).Build()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(leader, nil)
	m.ledger.On("Release", ctx, holdID).Return(nil)
	m.bids.On("Update", ctx, leader).Return(nil)
	m.bids.On("ListOpen", ctx, a.ID).Return([]*bid.Bid{leader}, nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.Settle(ctx, a.ID)

	require.NoError(t, err)
	assert.Equal(t, auction.StatusNoSale, result.Status)
	assert.Nil(t, result.WinnerID)
	assert.Equal(t, bid.StatusRefunded, leader.Status)
	m.ledger.AssertCalled(t, "Release", ctx, holdID)
	m.ledger.AssertNotCalled(t, "TransferFromHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Settle_Sold(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := expiredAuction().WithCurrentBid(200, 2).Build()
	leaderHold := uuid.New()
	leader := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithAmount(200).WithHold(leaderHold, 200).Build()
	// A stray open loser with a live hold; settlement must clean it up.
	strayHold := uuid.New()
	stray := fixtures.NewBidBuilder().
		WithAuctionID(a.ID).
		WithAmount(150).
		WithStatus(bid.StatusActive).
		WithHold(strayHold, 150).
		Build()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(leader, nil)
	m.ledger.On("TransferFromHold", ctx, leaderHold, a.SellerID).Return(nil)
	m.bids.On("Update", ctx, leader).Return(nil)
	m.bids.On("ListOpen", ctx, a.ID).Return([]*bid.Bid{leader, stray}, nil)
	m.ledger.On("Release", ctx, strayHold).Return(nil)
	m.bids.On("Update", ctx, stray).Return(nil)
	m.auctions.On("Update", ctx, a).Return(nil)

	result, err := svc.Settle(ctx, a.ID)

	require.NoError(t, err)
	assert.Equal(t, auction.StatusSold, result.Status)
	require.NotNil(t, result.WinnerID)
	assert.Equal(t, leader.BidderID, *result.WinnerID)
	require.NotNil(t, result.Amount)
	assert.Equal(t, bid.StatusWon, leader.Status)
	assert.Equal(t, bid.StatusLost, stray.Status)
	m.ledger.AssertExpectations(t)
}

func TestService_Settle_NoTransferWhenStoreWriteFails(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := expiredAuction().WithCurrentBid(200, 1).Build()
	leaderHold := uuid.New()
	leader := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithAmount(200).WithHold(leaderHold, 200).Build()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(leader, nil)
	m.bids.On("Update", ctx, leader).Return(assert.AnError)

	_, err := svc.Settle(ctx, a.ID)

	require.Error(t, err)
	// The transaction rolled back before the transfer; the next sweep can
	// settle from scratch without paying the seller twice.
	m.ledger.AssertNotCalled(t, "TransferFromHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Settle_ReholdsReleasedFundsOnFailure(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := expiredAuction().WithCurrentBid(200, 2).Build()
	leaderHold := uuid.New()
	leader := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithAmount(200).WithHold(leaderHold, 200).Build()
	strayHold := uuid.New()
	stray := fixtures.NewBidBuilder().
		WithAuctionID(a.ID).
		WithAmount(150).
		WithStatus(bid.StatusActive).
		WithHold(strayHold, 150).
		Build()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(leader, nil)
	m.bids.On("Update", ctx, leader).Return(nil)
	m.bids.On("ListOpen", ctx, a.ID).Return([]*bid.Bid{leader, stray}, nil)
	m.ledger.On("Release", ctx, strayHold).Return(nil)
	m.bids.On("Update", ctx, stray).Return(nil)
	m.auctions.On("Update", ctx, a).Return(assert.AnError)
	// The aborted transaction re-holds what the cleanup released.
	m.ledger.On("Hold", ctx, stray.BidderID, values.MustCredits(150), a.ID.String()).
		Return(uuid.New(), nil)

	_, err := svc.Settle(ctx, a.ID)

	require.Error(t, err)
	m.ledger.AssertCalled(t, "Hold", ctx, stray.BidderID, values.MustCredits(150), a.ID.String())
	m.ledger.AssertNotCalled(t, "TransferFromHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Settle_LeaderWithoutHoldFails(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	a := expiredAuction().WithCurrentBid(200, 1).Build()
	leader := fixtures.NewBidBuilder().WithAuctionID(a.ID).WithAmount(200).WithoutHold().Build()

	m.auctions.On("GetForUpdate", ctx, a.ID).Return(a, nil)
	m.bids.On("GetLeader", ctx, a.ID).Return(leader, nil)

	_, err := svc.Settle(ctx, a.ID)

	require.Error(t, err)
	m.ledger.AssertNotCalled(t, "TransferFromHold", mock.Anything, mock.Anything, mock.Anything)
	m.auctions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_SettleExpired_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)

	broken := expiredAuction().Build()
	healthy := expiredAuction().Build()

	m.auctions.On("ListExpired", ctx, mock.Anything, 100).
		Return([]uuid.UUID{broken.ID, healthy.ID}, nil)
	m.auctions.On("GetForUpdate", ctx, broken.ID).Return(nil, assert.AnError)
	m.auctions.On("GetForUpdate", ctx, healthy.ID).Return(healthy, nil)
	m.bids.On("GetLeader", ctx, healthy.ID).Return(nil, nil)
	m.bids.On("ListOpen", ctx, healthy.ID).Return([]*bid.Bid{}, nil)
	m.auctions.On("Update", ctx, healthy).Return(nil)

	settled, err := svc.SettleExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, settled, "one auction settles despite the other failing")
	assert.Equal(t, auction.StatusNoSale, healthy.Status)
}
