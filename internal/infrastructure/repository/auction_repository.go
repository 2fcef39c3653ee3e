package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearbid/auction-engine/internal/domain/auction"
	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/infrastructure/database"
)

// auctionRepository implements the auction store over PostgreSQL. The
// auction row is the serialization point for all bid processing: writers
// take GetForUpdate before touching price, deadline, or status.
type auctionRepository struct {
	pool *database.Pool
}

// NewAuctionRepository creates a Postgres-backed auction repository.
func NewAuctionRepository(pool *database.Pool) *auctionRepository {
	return &auctionRepository{pool: pool}
}

const auctionColumns = `
	id, seller_id, title, description,
	starting_price, reserve_price, buy_now_price,
	current_bid, bid_count,
	ends_at, original_ends_at, anti_snipe_window_secs, extensions,
	auto_bid_allowed, status, winner_id, ending_soon_notified,
	created_at, updated_at`

// Create stores a new auction.
func (r *auctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.pool.Conn(ctx).Exec(ctx, query,
		a.ID, a.SellerID, a.Title, a.Description,
		a.StartingPrice, creditsPtr(a.ReservePrice), creditsPtr(a.BuyNowPrice),
		creditsPtr(a.CurrentBid), a.BidCount,
		a.EndsAt, a.OriginalEndsAt, int64(a.AntiSnipeWindow.Seconds()), a.Extensions,
		a.AutoBidAllowed, a.Status.String(), a.WinnerID, false,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// GetByID retrieves an auction without locking.
func (r *auctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return r.scanAuction(r.pool.Conn(ctx).QueryRow(ctx, query, id))
}

// GetForUpdate retrieves an auction and takes its row lock. Must be called
// inside a transaction; two concurrent bids on the same auction serialize
// here while bids on different auctions never contend.
func (r *auctionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return r.scanAuction(r.pool.Conn(ctx).QueryRow(ctx, query, id))
}

// Update persists mutable auction state.
func (r *auctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET current_bid = $2,
		    bid_count = $3,
		    ends_at = $4,
		    extensions = $5,
		    status = $6,
		    winner_id = $7,
		    updated_at = $8
		WHERE id = $1
	`
	tag, err := r.pool.Conn(ctx).Exec(ctx, query,
		a.ID, creditsPtr(a.CurrentBid), a.BidCount,
		a.EndsAt, a.Extensions, a.Status.String(), a.WinnerID, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrAuctionNotFound
	}
	return nil
}

// ListExpired returns ids of active auctions whose deadline has passed.
// Settlement is idempotent so duplicate results across sweeps are fine.
func (r *auctionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM auctions
		WHERE status = 'active' AND ends_at <= $1
		ORDER BY ends_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Conn(ctx).Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEndingSoon returns active auctions entering their final window that
// have not yet triggered an ending-soon notification, and marks them so.
func (r *auctionRepository) ListEndingSoon(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE auctions
		SET ending_soon_notified = TRUE
		WHERE id IN (
			SELECT id FROM auctions
			WHERE status = 'active'
			AND ending_soon_notified = FALSE
			AND ends_at > $1 AND ends_at <= $2
			ORDER BY ends_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`
	rows, err := r.pool.Conn(ctx).Query(ctx, query, now, now.Add(window), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ending-soon auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *auctionRepository) scanAuction(row pgx.Row) (*auction.Auction, error) {
	var a auction.Auction
	var statusStr string
	var reserve, buyNow, current *values.Credits
	var windowSecs int64
	var endingSoonNotified bool

	err := row.Scan(
		&a.ID, &a.SellerID, &a.Title, &a.Description,
		&a.StartingPrice, &reserve, &buyNow,
		&current, &a.BidCount,
		&a.EndsAt, &a.OriginalEndsAt, &windowSecs, &a.Extensions,
		&a.AutoBidAllowed, &statusStr, &a.WinnerID, &endingSoonNotified,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to scan auction: %w", err)
	}

	a.ReservePrice = reserve
	a.BuyNowPrice = buyNow
	a.CurrentBid = current
	a.AntiSnipeWindow = time.Duration(windowSecs) * time.Second
	a.Status = auction.ParseStatus(statusStr)
	return &a, nil
}

// creditsPtr passes nullable Credits columns through as driver values.
func creditsPtr(c *values.Credits) interface{} {
	if c == nil {
		return nil
	}
	return *c
}
