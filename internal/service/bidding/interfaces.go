package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/domain/watch"
)

// Service is the bidding engine's exposed surface.
type Service interface {
	// CreateAuction stores a draft auction.
	CreateAuction(ctx context.Context, req *CreateAuctionRequest) (*auction.Auction, error)
	// PublishAuction transitions a draft to active, validating end time
	// and price relationships.
	PublishAuction(ctx context.Context, auctionID uuid.UUID) error
	// PlaceBid runs validation, escrow, proxy replay, and anti-snipe as
	// one transaction scoped to the auction row.
	PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResult, error)
	// BuyNow settles the auction immediately at its buy-now price.
	BuyNow(ctx context.Context, auctionID, bidderID uuid.UUID) (*PlaceBidResult, error)
	// CancelAuction lets the seller withdraw an active auction; all live
	// holds are released.
	CancelAuction(ctx context.Context, auctionID, sellerID uuid.UUID) error
	// GetAuction retrieves an auction.
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)
	// ListBids returns an auction's bids newest-first, enriched with
	// bidder display identity.
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidView, error)
	// Watch subscribes a user to auction notifications.
	Watch(ctx context.Context, req *WatchRequest) error
	// Unwatch removes a subscription.
	Unwatch(ctx context.Context, auctionID, watcherID uuid.UUID) error
}

// AuctionRepository defines the auction store.
type AuctionRepository interface {
	Create(ctx context.Context, a *auction.Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// GetForUpdate takes the per-auction row lock; transactional callers only.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	Update(ctx context.Context, a *auction.Auction) error
}

// BidRepository defines bid storage.
type BidRepository interface {
	Create(ctx context.Context, b *bid.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error)
	Update(ctx context.Context, b *bid.Bid) error
	// GetLeader returns the single winning bid, or nil with no bids.
	GetLeader(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)
	// ListStandingProxies returns open bids with an auto-bid ceiling,
	// ceiling descending, earliest placed first.
	ListStandingProxies(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
	// ListOpen returns bids in active or winning status.
	ListOpen(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
	// ListByAuction returns all bids newest-first.
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
}

// WatchRepository defines watch entry storage.
type WatchRepository interface {
	Upsert(ctx context.Context, e *watch.Entry) error
	Delete(ctx context.Context, auctionID, watcherID uuid.UUID) error
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*watch.Entry, error)
}

// Ledger is the consumed currency ledger contract. All operations are
// atomic at the ledger's boundary.
type Ledger interface {
	AvailableBalance(ctx context.Context, account uuid.UUID) (values.Credits, error)
	Hold(ctx context.Context, account uuid.UUID, amount values.Credits, tag string) (uuid.UUID, error)
	AdjustHold(ctx context.Context, holdID uuid.UUID, amount values.Credits) error
	Release(ctx context.Context, holdID uuid.UUID) error
	TransferFromHold(ctx context.Context, holdID uuid.UUID, destination uuid.UUID) error
}

// Transactor runs a function inside one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier receives engine events for asynchronous fan-out. Best effort:
// implementations log failures and never propagate them into bid handling.
type Notifier interface {
	LeaderChanged(ctx context.Context, ev LeaderChangeEvent)
	AuctionSettled(ctx context.Context, ev SettlementEvent)
}

// ProfileReader resolves display identity from the profile collaborator.
type ProfileReader interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// MetricsCollector records engine metrics.
type MetricsCollector interface {
	RecordBidPlaced(amount values.Credits)
	RecordBidRejected(code string)
	RecordDeadlineExtended()
	RecordSettlement(status string)
}

// CreateAuctionRequest describes a new draft auction.
type CreateAuctionRequest struct {
	SellerID        uuid.UUID
	Title           string
	Description     string
	StartingPrice   values.Credits
	ReservePrice    *values.Credits
	BuyNowPrice     *values.Credits
	EndsAt          time.Time
	AntiSnipeWindow time.Duration
	AutoBidAllowed  bool
}

// PlaceBidRequest describes a candidate bid.
type PlaceBidRequest struct {
	AuctionID  uuid.UUID
	BidderID   uuid.UUID
	Amount     values.Credits
	MaxAutoBid *values.Credits
}

// PlaceBidResult reports the outcome of an accepted bid.
type PlaceBidResult struct {
	BidID uuid.UUID
	// AcceptedAmount is the auction's new current bid after proxy replay;
	// with standing proxies it can exceed the amount requested.
	AcceptedAmount values.Credits
	// IsLeader reports whether the caller's bid ended up winning.
	IsLeader bool
	// Extended reports whether anti-snipe moved the deadline.
	Extended bool
	EndsAt   time.Time
}

// WatchRequest subscribes a watcher with notification preferences.
type WatchRequest struct {
	AuctionID        uuid.UUID
	WatcherID        uuid.UUID
	NotifyOutbid     bool
	NotifyEndingSoon bool
}

// BidView is a bid enriched with bidder display identity for read paths.
type BidView struct {
	*bid.Bid
	BidderName string `json:"bidder_name"`
}

// LeaderChangeEvent describes a committed bid that changed the leader.
type LeaderChangeEvent struct {
	AuctionID    uuid.UUID
	NewLeaderID  uuid.UUID
	OutbidBidder *uuid.UUID
	Amount       values.Credits
	EndsAt       time.Time
}

// SettlementEvent describes a settled auction.
type SettlementEvent struct {
	AuctionID uuid.UUID
	SellerID  uuid.UUID
	Status    string
	WinnerID  *uuid.UUID
	Amount    *values.Credits
	LoserIDs  []uuid.UUID
}
