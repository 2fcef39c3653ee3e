package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/watch"
)

// AuctionRepository is a mock auction store.
type AuctionRepository struct {
	mock.Mock
}

func (m *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*auction.Auction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuctionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*auction.Auction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *AuctionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, now, limit)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuctionRepository) ListEndingSoon(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, now, window, limit)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

// BidRepository is a mock bid store.
type BidRepository struct {
	mock.Mock
}

func (m *BidRepository) Create(ctx context.Context, b *bid.Bid) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*bid.Bid), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BidRepository) Update(ctx context.Context, b *bid.Bid) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *BidRepository) GetLeader(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	args := m.Called(ctx, auctionID)
	if b := args.Get(0); b != nil {
		return b.(*bid.Bid), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BidRepository) ListStandingProxies(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	args := m.Called(ctx, auctionID)
	if bids := args.Get(0); bids != nil {
		return bids.([]*bid.Bid), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BidRepository) ListOpen(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	args := m.Called(ctx, auctionID)
	if bids := args.Get(0); bids != nil {
		return bids.([]*bid.Bid), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	args := m.Called(ctx, auctionID)
	if bids := args.Get(0); bids != nil {
		return bids.([]*bid.Bid), args.Error(1)
	}
	return nil, args.Error(1)
}

// WatchRepository is a mock watch store.
type WatchRepository struct {
	mock.Mock
}

func (m *WatchRepository) Upsert(ctx context.Context, e *watch.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *WatchRepository) Delete(ctx context.Context, auctionID, watcherID uuid.UUID) error {
	args := m.Called(ctx, auctionID, watcherID)
	return args.Error(0)
}

func (m *WatchRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*watch.Entry, error) {
	args := m.Called(ctx, auctionID)
	if entries := args.Get(0); entries != nil {
		return entries.([]*watch.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}
