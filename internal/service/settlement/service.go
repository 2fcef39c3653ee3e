package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

type service struct {
	auctions AuctionRepository
	bids     BidRepository
	ledger   Ledger
	tx       bidding.Transactor
	notifier Notifier
	metrics  MetricsCollector
	logger   *zap.Logger

	interval         time.Duration
	batchSize        int
	endingSoonWindow time.Duration
	now              func() time.Time
}

// NewService wires the settlement engine.
func NewService(
	auctions AuctionRepository,
	bids BidRepository,
	ledger Ledger,
	tx bidding.Transactor,
	notifier Notifier,
	metrics MetricsCollector,
	cfg *config.AuctionConfig,
	logger *zap.Logger,
) Service {
	return &service{
		auctions:         auctions,
		bids:             bids,
		ledger:           ledger,
		tx:               tx,
		notifier:         notifier,
		metrics:          metrics,
		logger:           logger,
		interval:         cfg.SettleInterval,
		batchSize:        cfg.SettleBatchSize,
		endingSoonWindow: cfg.EndingSoonWindow,
		now:              time.Now,
	}
}

// Run drives the settlement and ending-soon sweeps until ctx is cancelled.
func (s *service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("settlement sweeper started",
		zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.SettleExpired(ctx); err != nil {
				s.logger.Error("settlement sweep failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Info("settlement sweep completed", zap.Int("settled", n))
			}
			s.sweepEndingSoon(ctx)
		}
	}
}

// SettleExpired settles every active auction past its deadline. Each
// auction settles in its own transaction; one failure does not stop the
// sweep.
func (s *service) SettleExpired(ctx context.Context) (int, error) {
	ids, err := s.auctions.ListExpired(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range ids {
		if _, err := s.Settle(ctx, id); err != nil {
			s.logger.Error("failed to settle auction",
				zap.String("auction_id", id.String()),
				zap.Error(err))
			continue
		}
		settled++
	}
	return settled, nil
}

// compensator collects undo actions for ledger calls made inside a
// transaction that later aborts. Undo runs in reverse order.
type compensator struct {
	undos  []func(ctx context.Context) error
	logger *zap.Logger
}

func newCompensator(logger *zap.Logger) *compensator {
	return &compensator{logger: logger}
}

func (c *compensator) add(undo func(ctx context.Context) error) {
	c.undos = append(c.undos, undo)
}

func (c *compensator) rollback(ctx context.Context) {
	for i := len(c.undos) - 1; i >= 0; i-- {
		if err := c.undos[i](ctx); err != nil {
			c.logger.Error("escrow compensation failed", zap.Error(err))
		}
	}
}

// Settle finalizes one auction: winner or no-sale, escrow finalized, all
// in one transaction against the locked auction row. Settling an already
// settled auction reports success with no state change.
func (s *service) Settle(ctx context.Context, auctionID uuid.UUID) (*Result, error) {
	var result *Result
	var event *bidding.SettlementEvent

	comp := newCompensator(s.logger)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()

		a, err := s.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}

		// Idempotency guard: a bid that slipped in before us may also
		// have re-armed anti-snipe, in which case the auction is simply
		// not expired anymore.
		if a.Status != auction.StatusActive {
			result = &Result{
				AuctionID:      a.ID,
				Status:         a.Status,
				WinnerID:       a.WinnerID,
				AlreadySettled: true,
			}
			return nil
		}
		if now.Before(a.EndsAt) {
			result = &Result{AuctionID: a.ID, Status: a.Status, AlreadySettled: true}
			return nil
		}

		leader, err := s.bids.GetLeader(ctx, a.ID)
		if err != nil {
			return err
		}

		var winnerHold *uuid.UUID
		switch {
		case leader == nil:
			a.MarkNoSale(now)

		case !a.ReserveMet():
			// Reserve not met: the leading bidder gets their escrow
			// back in full and nobody wins.
			if err := s.refund(ctx, comp, leader, now); err != nil {
				return err
			}
			a.MarkNoSale(now)

		default:
			if leader.HoldID == nil {
				return errors.NewInternalError("winning bid has no ledger hold")
			}
			winnerHold = leader.HoldID
			leader.MarkWon(now)
			if err := s.bids.Update(ctx, leader); err != nil {
				return err
			}
			a.MarkSold(leader.BidderID, now)
		}

		// Defensive cleanup: no open bid other than the leader should
		// survive settlement, and no stray hold should outlive it.
		open, err := s.bids.ListOpen(ctx, a.ID)
		if err != nil {
			return err
		}
		losers := make([]uuid.UUID, 0, len(open))
		for _, b := range open {
			if leader != nil && b.ID == leader.ID {
				continue
			}
			if b.HoldID != nil && b.EscrowReleasedAt == nil {
				if err := s.release(ctx, comp, b); err != nil {
					return err
				}
			}
			b.MarkLost(now)
			losers = append(losers, b.BidderID)
			if err := s.bids.Update(ctx, b); err != nil {
				return err
			}
		}

		if err := s.auctions.Update(ctx, a); err != nil {
			return err
		}

		// Transfer is terminal at the ledger and ordered after every
		// store write, so a failed write can never strand a completed
		// transfer on an auction that will settle again.
		if winnerHold != nil {
			if err := s.ledger.TransferFromHold(ctx, *winnerHold, a.SellerID); err != nil {
				return err
			}
		}

		result = &Result{
			AuctionID: a.ID,
			Status:    a.Status,
			WinnerID:  a.WinnerID,
		}
		event = &bidding.SettlementEvent{
			AuctionID: a.ID,
			SellerID:  a.SellerID,
			Status:    a.Status.String(),
			WinnerID:  a.WinnerID,
			LoserIDs:  losers,
		}
		if a.Status == auction.StatusSold {
			result.Amount = a.CurrentBid
			event.Amount = a.CurrentBid
		}
		return nil
	})
	if err != nil {
		comp.rollback(ctx)
		return nil, err
	}

	if !result.AlreadySettled {
		s.metrics.RecordSettlement(result.Status.String())
		go s.notifier.AuctionSettled(context.WithoutCancel(ctx), *event)
	}
	return result, nil
}

func (s *service) refund(ctx context.Context, comp *compensator, b *bid.Bid, now time.Time) error {
	if b.HoldID != nil && b.EscrowReleasedAt == nil {
		if err := s.release(ctx, comp, b); err != nil {
			return err
		}
	}
	b.MarkRefunded(now)
	return s.bids.Update(ctx, b)
}

// release frees a live hold and registers a re-hold so an aborted
// transaction leaves the ledger as it found it.
func (s *service) release(ctx context.Context, comp *compensator, b *bid.Bid) error {
	holdID := *b.HoldID
	account := b.BidderID
	amount := b.EscrowAmount
	auctionTag := b.AuctionID.String()

	if err := s.ledger.Release(ctx, holdID); err != nil {
		return err
	}
	comp.add(func(ctx context.Context) error {
		_, err := s.ledger.Hold(ctx, account, amount, auctionTag)
		return err
	})
	return nil
}

// sweepEndingSoon emits ending-soon events for auctions entering their
// final window. Best effort; the repository marks each auction so the
// event fires once.
func (s *service) sweepEndingSoon(ctx context.Context) {
	if s.endingSoonWindow <= 0 {
		return
	}
	now := s.now().UTC()
	ids, err := s.auctions.ListEndingSoon(ctx, now, s.endingSoonWindow, s.batchSize)
	if err != nil {
		s.logger.Error("ending-soon sweep failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		s.notifier.AuctionEndingSoon(ctx, id, now.Add(s.endingSoonWindow))
	}
}
