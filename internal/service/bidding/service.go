package bidding

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/domain/watch"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
)

// service orchestrates the bid pipeline: validate, escrow, proxy replay,
// anti-snipe, store update. Each bid runs as one transaction scoped to its
// auction row; correctness comes from the store's locking, not in-process
// state, so concurrent handlers share nothing.
type service struct {
	auctions AuctionRepository
	bids     BidRepository
	watches  WatchRepository
	tx       Transactor
	escrow   *escrowCoordinator
	validate *validator
	notifier Notifier
	profiles ProfileReader
	metrics  MetricsCollector
	logger   *zap.Logger

	increment     values.Credits
	defaultWindow time.Duration
	maxExtensions int
	now           func() time.Time
}

// NewService wires the bidding engine.
func NewService(
	auctions AuctionRepository,
	bids BidRepository,
	watches WatchRepository,
	ledger Ledger,
	tx Transactor,
	notifier Notifier,
	profiles ProfileReader,
	metrics MetricsCollector,
	cfg *config.AuctionConfig,
	logger *zap.Logger,
) Service {
	increment := values.MustCredits(cfg.MinIncrement)
	maxCeiling := values.ZeroCredits()
	if cfg.MaxProxyCeiling > 0 {
		maxCeiling = values.MustCredits(cfg.MaxProxyCeiling)
	}
	return &service{
		auctions:      auctions,
		bids:          bids,
		watches:       watches,
		tx:            tx,
		escrow:        newEscrowCoordinator(ledger, logger),
		validate:      newValidator(ledger, increment, maxCeiling),
		notifier:      notifier,
		profiles:      profiles,
		metrics:       metrics,
		logger:        logger,
		increment:     increment,
		defaultWindow: cfg.AntiSnipeWindow,
		maxExtensions: cfg.MaxExtensions,
		now:           time.Now,
	}
}

// CreateAuction stores a draft. Publish performs the full validation.
func (s *service) CreateAuction(ctx context.Context, req *CreateAuctionRequest) (*auction.Auction, error) {
	if !req.StartingPrice.IsPositive() {
		return nil, errors.NewValidationError("INVALID_STARTING_PRICE",
			"Starting price must be positive")
	}

	window := req.AntiSnipeWindow
	if window <= 0 {
		window = s.defaultWindow
	}

	a := auction.NewAuction(req.SellerID, req.Title, req.StartingPrice, req.EndsAt.UTC(), window)
	a.Description = req.Description
	a.ReservePrice = req.ReservePrice
	a.BuyNowPrice = req.BuyNowPrice
	a.AutoBidAllowed = req.AutoBidAllowed

	if err := s.auctions.Create(ctx, a); err != nil {
		return nil, errors.NewInternalError("failed to store auction").WithCause(err)
	}
	return a, nil
}

// PublishAuction transitions draft to active.
func (s *service) PublishAuction(ctx context.Context, auctionID uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if err := a.Publish(s.now().UTC()); err != nil {
			return err
		}
		return s.auctions.Update(ctx, a)
	})
}

// PlaceBid runs the full admission pipeline in one transaction.
func (s *service) PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResult, error) {
	var result *PlaceBidResult
	var event *LeaderChangeEvent

	comp := newCompensator(s.logger)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()

		a, err := s.auctions.GetForUpdate(ctx, req.AuctionID)
		if err != nil {
			return err
		}
		if err := s.validate.admit(ctx, a, req, now); err != nil {
			return err
		}

		prev, err := s.bids.GetLeader(ctx, a.ID)
		if err != nil {
			return err
		}

		newBid := bid.NewBid(a.ID, req.BidderID, req.Amount, req.MaxAutoBid)
		newBid.PlacedAt = now
		newBid.CreatedAt = now
		newBid.UpdatedAt = now

		var standing []*bid.Bid
		if a.AutoBidAllowed {
			standing, err = s.bids.ListStandingProxies(ctx, a.ID)
			if err != nil {
				return err
			}
		}

		outcome := resolveProxies(newBid, standing, s.increment)
		winner, price := outcome.Leader, outcome.Price

		// Re-home escrow onto the winner.
		if prev != nil && prev.ID != winner.ID {
			if prev.BidderID == winner.BidderID {
				if err := s.escrow.moveHold(ctx, comp, prev, winner, price, now); err != nil {
					return err
				}
			} else {
				if err := s.escrow.releaseOutbid(ctx, comp, prev, now); err != nil {
					return err
				}
			}
		}
		if winner.HoldID == nil {
			if err := s.escrow.holdFor(ctx, comp, winner, price); err != nil {
				return err
			}
		} else if !winner.EscrowAmount.Equal(price) {
			if err := s.escrow.adjustLeader(ctx, comp, winner, price); err != nil {
				return err
			}
		}
		winner.MarkWinning(price, now)

		// An admitted bid that immediately lost the proxy replay is
		// recorded outbid; it never held funds.
		if newBid.ID != winner.ID {
			newBid.MarkOutbid(now)
		}

		if err := s.bids.Create(ctx, newBid); err != nil {
			return errors.NewInternalError("failed to store bid").WithCause(err)
		}
		if prev != nil && prev.ID != winner.ID {
			if err := s.bids.Update(ctx, prev); err != nil {
				return err
			}
		}
		if winner.ID != newBid.ID {
			if err := s.bids.Update(ctx, winner); err != nil {
				return err
			}
		}

		a.RecordBid(price, now)
		extended := a.ExtendDeadline(now, s.maxExtensions)
		if err := s.auctions.Update(ctx, a); err != nil {
			return err
		}

		result = &PlaceBidResult{
			BidID:          newBid.ID,
			AcceptedAmount: price,
			IsLeader:       winner.BidderID == req.BidderID,
			Extended:       extended,
			EndsAt:         a.EndsAt,
		}

		event = &LeaderChangeEvent{
			AuctionID:   a.ID,
			NewLeaderID: winner.BidderID,
			Amount:      price,
			EndsAt:      a.EndsAt,
		}
		if prev != nil && prev.BidderID != winner.BidderID {
			outbid := prev.BidderID
			event.OutbidBidder = &outbid
		}
		return nil
	})
	if err != nil {
		comp.rollback(ctx)
		s.recordRejection(err)
		return nil, err
	}

	s.metrics.RecordBidPlaced(result.AcceptedAmount)
	if result.Extended {
		s.metrics.RecordDeadlineExtended()
	}

	// Fan-out happens outside the transaction; a failure there can never
	// roll back a committed bid.
	go s.notifier.LeaderChanged(context.WithoutCancel(ctx), *event)

	return result, nil
}

// BuyNow short-circuits to immediate settlement at the buy-now price.
func (s *service) BuyNow(ctx context.Context, auctionID, bidderID uuid.UUID) (*PlaceBidResult, error) {
	var result *PlaceBidResult
	var event *SettlementEvent

	comp := newCompensator(s.logger)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()

		a, err := s.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		price, err := s.validate.admitBuyNow(ctx, a, bidderID, now)
		if err != nil {
			return err
		}

		buyBid := bid.NewBid(a.ID, bidderID, price, nil)
		buyBid.IsBuyNow = true
		buyBid.PlacedAt = now
		buyBid.CreatedAt = now
		buyBid.UpdatedAt = now

		if err := s.escrow.holdFor(ctx, comp, buyBid, price); err != nil {
			return err
		}

		// Every open bid loses; live holds are released in full.
		open, err := s.bids.ListOpen(ctx, a.ID)
		if err != nil {
			return err
		}
		losers := make([]uuid.UUID, 0, len(open))
		for _, b := range open {
			if b.HoldID != nil && b.EscrowReleasedAt == nil {
				if err := s.escrow.releaseOutbid(ctx, comp, b, now); err != nil {
					return err
				}
			}
			b.MarkLost(now)
			losers = append(losers, b.BidderID)
			if err := s.bids.Update(ctx, b); err != nil {
				return err
			}
		}

		buyBid.MarkWon(now)
		if err := s.bids.Create(ctx, buyBid); err != nil {
			return errors.NewInternalError("failed to store bid").WithCause(err)
		}

		a.RecordBid(price, now)
		a.MarkSold(bidderID, now)
		if err := s.auctions.Update(ctx, a); err != nil {
			return err
		}

		// Transfer is terminal at the ledger and ordered last so every
		// earlier failure leaves it untouched.
		if err := s.escrow.finalize(ctx, buyBid, a.SellerID); err != nil {
			return err
		}

		result = &PlaceBidResult{
			BidID:          buyBid.ID,
			AcceptedAmount: price,
			IsLeader:       true,
			EndsAt:         a.EndsAt,
		}
		event = &SettlementEvent{
			AuctionID: a.ID,
			SellerID:  a.SellerID,
			Status:    auction.StatusSold.String(),
			WinnerID:  &bidderID,
			Amount:    &price,
			LoserIDs:  losers,
		}
		return nil
	})
	if err != nil {
		comp.rollback(ctx)
		s.recordRejection(err)
		return nil, err
	}

	s.metrics.RecordBidPlaced(result.AcceptedAmount)
	s.metrics.RecordSettlement(auction.StatusSold.String())
	go s.notifier.AuctionSettled(context.WithoutCancel(ctx), *event)

	return result, nil
}

// CancelAuction withdraws an active auction and refunds all live holds.
func (s *service) CancelAuction(ctx context.Context, auctionID, sellerID uuid.UUID) error {
	var event *SettlementEvent

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()

		a, err := s.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.SellerID != sellerID {
			return errors.ErrNotSeller
		}
		if a.Status.IsTerminal() {
			return errors.ErrAuctionNotActive
		}

		open, err := s.bids.ListOpen(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, b := range open {
			if err := s.escrow.releaseRefund(ctx, b, now); err != nil {
				return err
			}
			if err := s.bids.Update(ctx, b); err != nil {
				return err
			}
		}

		a.MarkCancelled(now)
		if err := s.auctions.Update(ctx, a); err != nil {
			return err
		}

		event = &SettlementEvent{
			AuctionID: a.ID,
			SellerID:  a.SellerID,
			Status:    auction.StatusCancelled.String(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordSettlement(auction.StatusCancelled.String())
	go s.notifier.AuctionSettled(context.WithoutCancel(ctx), *event)
	return nil
}

// GetAuction retrieves an auction.
func (s *service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return s.auctions.GetByID(ctx, auctionID)
}

// ListBids returns all bids newest-first, enriched with display names.
// Profile lookups are best-effort reads; a failed lookup degrades to an
// empty name rather than failing the listing.
func (s *service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidView, error) {
	if _, err := s.auctions.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := s.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(bids))
	views := make([]*BidView, 0, len(bids))
	for _, b := range bids {
		name, ok := names[b.BidderID]
		if !ok {
			name, err = s.profiles.DisplayName(ctx, b.BidderID)
			if err != nil {
				s.logger.Warn("profile lookup failed",
					zap.String("bidder_id", b.BidderID.String()),
					zap.Error(err))
				name = ""
			}
			names[b.BidderID] = name
		}
		views = append(views, &BidView{Bid: b, BidderName: name})
	}
	return views, nil
}

// Watch subscribes a watcher to auction notifications.
func (s *service) Watch(ctx context.Context, req *WatchRequest) error {
	if _, err := s.auctions.GetByID(ctx, req.AuctionID); err != nil {
		return err
	}
	e := watch.NewEntry(req.AuctionID, req.WatcherID)
	e.NotifyOutbid = req.NotifyOutbid
	e.NotifyEndingSoon = req.NotifyEndingSoon
	return s.watches.Upsert(ctx, e)
}

// Unwatch removes a subscription.
func (s *service) Unwatch(ctx context.Context, auctionID, watcherID uuid.UUID) error {
	return s.watches.Delete(ctx, auctionID, watcherID)
}

func (s *service) recordRejection(err error) {
	var appErr *errors.AppError
	code := "internal"
	if stderrors.As(err, &appErr) {
		code = appErr.Code
	}
	s.metrics.RecordBidRejected(code)
}
