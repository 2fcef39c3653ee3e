package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// Service finalizes expired auctions. Settlement is idempotent and
// tolerates at-least-once scheduling; duplicate triggers are no-ops.
type Service interface {
	// Settle finalizes one auction if its deadline has passed.
	Settle(ctx context.Context, auctionID uuid.UUID) (*Result, error)
	// SettleExpired sweeps all expired active auctions. Invoked by the
	// scheduler at a cadence shorter than the anti-snipe window.
	SettleExpired(ctx context.Context) (int, error)
	// Run drives the sweeps on a ticker until ctx is cancelled.
	Run(ctx context.Context) error
}

// AuctionRepository is the auction store surface settlement needs.
type AuctionRepository interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	Update(ctx context.Context, a *auction.Auction) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListEndingSoon(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uuid.UUID, error)
}

// BidRepository is the bid store surface settlement needs.
type BidRepository interface {
	GetLeader(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)
	ListOpen(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
	Update(ctx context.Context, b *bid.Bid) error
}

// Ledger is the subset of the currency ledger settlement touches. Hold
// exists only to undo a Release when the settling transaction aborts.
type Ledger interface {
	Hold(ctx context.Context, account uuid.UUID, amount values.Credits, tag string) (uuid.UUID, error)
	Release(ctx context.Context, holdID uuid.UUID) error
	TransferFromHold(ctx context.Context, holdID uuid.UUID, destination uuid.UUID) error
}

// Notifier receives settlement events for asynchronous fan-out.
type Notifier interface {
	AuctionSettled(ctx context.Context, ev bidding.SettlementEvent)
	AuctionEndingSoon(ctx context.Context, auctionID uuid.UUID, endsAt time.Time)
}

// MetricsCollector records settlement metrics.
type MetricsCollector interface {
	RecordSettlement(status string)
}

// Result reports the terminal state of one settlement attempt.
type Result struct {
	AuctionID uuid.UUID
	Status    auction.Status
	WinnerID  *uuid.UUID
	Amount    *values.Credits
	// AlreadySettled is true when the idempotency guard fired: the
	// auction was settled before this attempt, nothing changed.
	AlreadySettled bool
}
