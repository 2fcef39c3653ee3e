package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// BiddingService is a mock of the bidding engine surface for API tests.
type BiddingService struct {
	mock.Mock
}

func (m *BiddingService) CreateAuction(ctx context.Context, req *bidding.CreateAuctionRequest) (*auction.Auction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Auction), args.Error(1)
}

func (m *BiddingService) PublishAuction(ctx context.Context, auctionID uuid.UUID) error {
	args := m.Called(ctx, auctionID)
	return args.Error(0)
}

func (m *BiddingService) PlaceBid(ctx context.Context, req *bidding.PlaceBidRequest) (*bidding.PlaceBidResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bidding.PlaceBidResult), args.Error(1)
}

func (m *BiddingService) BuyNow(ctx context.Context, auctionID, bidderID uuid.UUID) (*bidding.PlaceBidResult, error) {
	args := m.Called(ctx, auctionID, bidderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bidding.PlaceBidResult), args.Error(1)
}

func (m *BiddingService) CancelAuction(ctx context.Context, auctionID, sellerID uuid.UUID) error {
	args := m.Called(ctx, auctionID, sellerID)
	return args.Error(0)
}

func (m *BiddingService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Auction), args.Error(1)
}

func (m *BiddingService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bidding.BidView, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bidding.BidView), args.Error(1)
}

func (m *BiddingService) Watch(ctx context.Context, req *bidding.WatchRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *BiddingService) Unwatch(ctx context.Context, auctionID, watcherID uuid.UUID) error {
	args := m.Called(ctx, auctionID, watcherID)
	return args.Error(0)
}
