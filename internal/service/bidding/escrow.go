package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
)

// escrowCoordinator moves holds between bids as the leader changes. Ledger
// calls happen inside the bid transaction; because the ledger is a remote
// collaborator they cannot roll back with it, so every mutating call is
// registered with a compensator that undoes it if the transaction aborts.
type escrowCoordinator struct {
	ledger Ledger
	logger *zap.Logger
}

func newEscrowCoordinator(ledger Ledger, logger *zap.Logger) *escrowCoordinator {
	return &escrowCoordinator{ledger: ledger, logger: logger}
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

// rollback undoes ledger effects after a failed transaction. Failures here
// are logged; the hold ids recorded on bid rows keep them reconcilable.
func (c *compensator) rollback(ctx context.Context) {
	for i := len(c.undos) - 1; i >= 0; i-- {
		if err := c.undos[i](ctx); err != nil {
			c.logger.Error("escrow compensation failed", zap.Error(err))
		}
	}
}

// holdFor places a hold backing b for the given amount and records it on
// the bid.
func (e *escrowCoordinator) holdFor(ctx context.Context, comp *compensator, b *bid.Bid, amount values.Credits) error {
	holdID, err := e.ledger.Hold(ctx, b.BidderID, amount, b.AuctionID.String())
	if err != nil {
		return err
	}
	comp.add(func(ctx context.Context) error {
		return e.ledger.Release(ctx, holdID)
	})
	b.AttachHold(holdID, amount)
	return nil
}

// releaseOutbid frees the previous leader's hold in full and marks the bid
// outbid. Used when a different bidder takes the lead.
func (e *escrowCoordinator) releaseOutbid(ctx context.Context, comp *compensator, prev *bid.Bid, now time.Time) error {
	if prev.HoldID == nil {
		return errors.NewInternalError("winning bid has no ledger hold")
	}
	holdID := *prev.HoldID
	account := prev.BidderID
	amount := prev.EscrowAmount

	if err := e.ledger.Release(ctx, holdID); err != nil {
		return err
	}
	comp.add(func(ctx context.Context) error {
		// Re-holding is the only way to undo a release; the new hold id
		// replaces the old one on reconciliation.
		_, err := e.ledger.Hold(ctx, account, amount, prev.AuctionID.String())
		return err
	})
	prev.MarkOutbid(now)
	return nil
}

// adjustLeader changes the held amount for a leader keeping the lead,
// moving the hold onto the bid row that now carries the leading position.
func (e *escrowCoordinator) adjustLeader(ctx context.Context, comp *compensator, leader *bid.Bid, amount values.Credits) error {
	if leader.HoldID == nil {
		return errors.NewInternalError("winning bid has no ledger hold")
	}
	holdID := *leader.HoldID
	prevAmount := leader.EscrowAmount

	if err := e.ledger.AdjustHold(ctx, holdID, amount); err != nil {
		return err
	}
	comp.add(func(ctx context.Context) error {
		return e.ledger.AdjustHold(ctx, holdID, prevAmount)
	})
	leader.AttachHold(holdID, amount)
	return nil
}

// moveHold re-homes a hold from the bidder's previous leading bid onto
// their new one, adjusting the held amount in place. Used when the same
// bidder raises their own position; the funds are never released.
func (e *escrowCoordinator) moveHold(ctx context.Context, comp *compensator, from, to *bid.Bid, amount values.Credits, now time.Time) error {
	if from.HoldID == nil {
		return errors.NewInternalError("winning bid has no ledger hold")
	}
	holdID := *from.HoldID
	prevAmount := from.EscrowAmount

	if err := e.ledger.AdjustHold(ctx, holdID, amount); err != nil {
		return err
	}
	comp.add(func(ctx context.Context) error {
		return e.ledger.AdjustHold(ctx, holdID, prevAmount)
	})

	from.HoldID = nil
	from.MarkOutbid(now)
	from.EscrowReleasedAt = &now
	to.AttachHold(holdID, amount)
	return nil
}

// finalize converts the winner's hold into a transfer to the seller.
// Terminal and not compensable; settlement orders it last.
func (e *escrowCoordinator) finalize(ctx context.Context, winner *bid.Bid, sellerAccount uuid.UUID) error {
	if winner.HoldID == nil {
		return errors.NewInternalError("winning bid has no ledger hold")
	}
	return e.ledger.TransferFromHold(ctx, *winner.HoldID, sellerAccount)
}

// releaseRefund frees a hold outside the outbid path (reserve not met,
// cancellation, defensive cleanup at settlement).
func (e *escrowCoordinator) releaseRefund(ctx context.Context, b *bid.Bid, now time.Time) error {
	if b.HoldID == nil || b.EscrowReleasedAt != nil {
		b.MarkRefunded(now)
		return nil
	}
	if err := e.ledger.Release(ctx, *b.HoldID); err != nil {
		return err
	}
	b.MarkRefunded(now)
	return nil
}
