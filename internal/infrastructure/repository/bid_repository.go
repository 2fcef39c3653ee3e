package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/infrastructure/database"
)

// bidRepository implements bid storage over PostgreSQL.
type bidRepository struct {
	pool *database.Pool
}

// NewBidRepository creates a Postgres-backed bid repository.
func NewBidRepository(pool *database.Pool) *bidRepository {
	return &bidRepository{pool: pool}
}

const bidColumns = `
	id, auction_id, bidder_id, amount, max_auto_bid, is_buy_now,
	status, hold_id, escrow_amount, escrow_released_at,
	placed_at, created_at, updated_at`

// Create stores a new bid.
func (r *bidRepository) Create(ctx context.Context, b *bid.Bid) error {
	if b.AuctionID == uuid.Nil {
		return stderrors.New("auction_id cannot be nil")
	}
	if b.BidderID == uuid.Nil {
		return stderrors.New("bidder_id cannot be nil")
	}
	if !b.Amount.IsPositive() {
		return stderrors.New("amount must be positive")
	}

	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Conn(ctx).Exec(ctx, query,
		b.ID, b.AuctionID, b.BidderID, b.Amount, creditsPtr(b.MaxAutoBid), b.IsBuyNow,
		b.Status.String(), b.HoldID, b.EscrowAmount, b.EscrowReleasedAt,
		b.PlacedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

// GetByID retrieves a bid by ID.
func (r *bidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	row := r.pool.Conn(ctx).QueryRow(ctx, query, id)
	b, err := scanBidRow(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrBidNotFound
		}
		return nil, err
	}
	return b, nil
}

// Update persists bid status and escrow bookkeeping.
func (r *bidRepository) Update(ctx context.Context, b *bid.Bid) error {
	query := `
		UPDATE bids
		SET amount = $2,
		    max_auto_bid = $3,
		    status = $4,
		    hold_id = $5,
		    escrow_amount = $6,
		    escrow_released_at = $7,
		    updated_at = $8
		WHERE id = $1
	`
	tag, err := r.pool.Conn(ctx).Exec(ctx, query,
		b.ID, b.Amount, creditsPtr(b.MaxAutoBid), b.Status.String(),
		b.HoldID, b.EscrowAmount, b.EscrowReleasedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrBidNotFound
	}
	return nil
}

// GetLeader returns the auction's single winning bid, or nil when the
// auction has no bids yet.
func (r *bidRepository) GetLeader(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 AND status = 'winning'`
	row := r.pool.Conn(ctx).QueryRow(ctx, query, auctionID)
	b, err := scanBidRow(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// ListStandingProxies returns open bids carrying an auto-bid ceiling,
// ordered by ceiling descending then earliest placed first. The proxy
// resolver replays these from scratch on every arrival.
func (r *bidRepository) ListStandingProxies(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		AND status IN ('active', 'winning')
		AND max_auto_bid IS NOT NULL
		ORDER BY max_auto_bid DESC, placed_at ASC
	`
	return r.queryBids(ctx, query, auctionID)
}

// ListOpen returns bids still holding or eligible to hold escrow
// (active or winning). Settlement walks these for defensive cleanup.
func (r *bidRepository) ListOpen(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		AND status IN ('active', 'winning')
		ORDER BY placed_at ASC
	`
	return r.queryBids(ctx, query, auctionID)
}

// ListByAuction returns all bids for an auction, newest first.
func (r *bidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY placed_at DESC
	`
	return r.queryBids(ctx, query, auctionID)
}

func (r *bidRepository) queryBids(ctx context.Context, query string, args ...any) ([]*bid.Bid, error) {
	rows, err := r.pool.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBidRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return bids, nil
}

func scanBidRow(row pgx.Row) (*bid.Bid, error) {
	var b bid.Bid
	var statusStr string
	var maxAutoBid *values.Credits

	err := row.Scan(
		&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &maxAutoBid, &b.IsBuyNow,
		&statusStr, &b.HoldID, &b.EscrowAmount, &b.EscrowReleasedAt,
		&b.PlacedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.MaxAutoBid = maxAutoBid
	b.Status = bid.ParseStatus(statusStr)
	return &b, nil
}
