package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// Event types emitted on the notification channel.
const (
	EventOutbid      = "outbid"
	EventLeadChanged = "lead_changed"
	EventWon         = "auction_won"
	EventLost        = "auction_lost"
	EventSold        = "auction_sold"
	EventNoSale      = "auction_no_sale"
	EventCancelled   = "auction_cancelled"
	EventEndingSoon  = "auction_ending_soon"
)

// Transport delivers one notification to one recipient, best effort.
type Transport interface {
	Notify(ctx context.Context, recipient uuid.UUID, eventType string, payload map[string]interface{}) error
}

// Notifier fans engine events out to the previously leading bidder and to
// watchers. Runs after commit, outside any transaction; every failure is
// logged and swallowed, never propagated back into bid handling.
type Notifier struct {
	watches   bidding.WatchRepository
	transport Transport
	logger    *zap.Logger
	timeout   time.Duration
}

// NewNotifier creates the fan-out service.
func NewNotifier(watches bidding.WatchRepository, transport Transport, logger *zap.Logger) *Notifier {
	return &Notifier{
		watches:   watches,
		transport: transport,
		logger:    logger,
		timeout:   10 * time.Second,
	}
}

// LeaderChanged notifies the outbid bidder and outbid-subscribed watchers,
// excluding the new leader.
func (n *Notifier) LeaderChanged(ctx context.Context, ev bidding.LeaderChangeEvent) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	payload := map[string]interface{}{
		"auction_id":  ev.AuctionID.String(),
		"current_bid": ev.Amount.String(),
		"ends_at":     ev.EndsAt,
	}

	notified := map[uuid.UUID]bool{ev.NewLeaderID: true}
	if ev.OutbidBidder != nil {
		n.send(ctx, *ev.OutbidBidder, EventOutbid, payload)
		notified[*ev.OutbidBidder] = true
	}

	entries, err := n.watches.ListByAuction(ctx, ev.AuctionID)
	if err != nil {
		n.logger.Warn("watcher lookup failed",
			zap.String("auction_id", ev.AuctionID.String()),
			zap.Error(err))
		return
	}
	for _, e := range entries {
		if !e.NotifyOutbid || notified[e.WatcherID] {
			continue
		}
		n.send(ctx, e.WatcherID, EventLeadChanged, payload)
		notified[e.WatcherID] = true
	}
}

// AuctionSettled notifies the winner, losers, seller, and watchers.
func (n *Notifier) AuctionSettled(ctx context.Context, ev bidding.SettlementEvent) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	payload := map[string]interface{}{
		"auction_id": ev.AuctionID.String(),
		"status":     ev.Status,
	}
	if ev.Amount != nil {
		payload["amount"] = ev.Amount.String()
	}

	notified := make(map[uuid.UUID]bool)
	if ev.WinnerID != nil {
		n.send(ctx, *ev.WinnerID, EventWon, payload)
		notified[*ev.WinnerID] = true
	}
	for _, loser := range ev.LoserIDs {
		if notified[loser] {
			continue
		}
		n.send(ctx, loser, EventLost, payload)
		notified[loser] = true
	}

	sellerEvent := EventNoSale
	switch ev.Status {
	case "sold":
		sellerEvent = EventSold
	case "cancelled":
		sellerEvent = EventCancelled
	}
	n.send(ctx, ev.SellerID, sellerEvent, payload)
	notified[ev.SellerID] = true

	entries, err := n.watches.ListByAuction(ctx, ev.AuctionID)
	if err != nil {
		n.logger.Warn("watcher lookup failed",
			zap.String("auction_id", ev.AuctionID.String()),
			zap.Error(err))
		return
	}
	for _, e := range entries {
		if notified[e.WatcherID] {
			continue
		}
		n.send(ctx, e.WatcherID, sellerEvent, payload)
		notified[e.WatcherID] = true
	}
}

// AuctionEndingSoon notifies watchers subscribed to ending-soon alerts.
func (n *Notifier) AuctionEndingSoon(ctx context.Context, auctionID uuid.UUID, endsAt time.Time) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	entries, err := n.watches.ListByAuction(ctx, auctionID)
	if err != nil {
		n.logger.Warn("watcher lookup failed",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
		return
	}

	payload := map[string]interface{}{
		"auction_id": auctionID.String(),
		"ends_at":    endsAt,
	}
	for _, e := range entries {
		if !e.NotifyEndingSoon {
			continue
		}
		n.send(ctx, e.WatcherID, EventEndingSoon, payload)
	}
}

func (n *Notifier) send(ctx context.Context, recipient uuid.UUID, eventType string, payload map[string]interface{}) {
	if err := n.transport.Notify(ctx, recipient, eventType, payload); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("recipient", recipient.String()),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
