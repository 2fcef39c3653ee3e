package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/watch"
	"github.com/clearbid/auction-engine/internal/infrastructure/database"
)

// watchRepository implements watch entry storage over PostgreSQL.
type watchRepository struct {
	pool *database.Pool
}

// NewWatchRepository creates a Postgres-backed watch repository.
func NewWatchRepository(pool *database.Pool) *watchRepository {
	return &watchRepository{pool: pool}
}

// Upsert stores a watch entry, replacing preferences on conflict.
func (r *watchRepository) Upsert(ctx context.Context, e *watch.Entry) error {
	query := `
		INSERT INTO watches (auction_id, watcher_id, notify_outbid, notify_ending_soon, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (auction_id, watcher_id)
		DO UPDATE SET notify_outbid = $3, notify_ending_soon = $4
	`
	_, err := r.pool.Conn(ctx).Exec(ctx, query,
		e.AuctionID, e.WatcherID, e.NotifyOutbid, e.NotifyEndingSoon, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert watch entry: %w", err)
	}
	return nil
}

// Delete removes a watch entry. Deleting a non-existent entry is a no-op.
func (r *watchRepository) Delete(ctx context.Context, auctionID, watcherID uuid.UUID) error {
	query := `DELETE FROM watches WHERE auction_id = $1 AND watcher_id = $2`
	_, err := r.pool.Conn(ctx).Exec(ctx, query, auctionID, watcherID)
	if err != nil {
		return fmt.Errorf("failed to delete watch entry: %w", err)
	}
	return nil
}

// ListByAuction returns all watch entries for an auction.
func (r *watchRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*watch.Entry, error) {
	query := `
		SELECT auction_id, watcher_id, notify_outbid, notify_ending_soon, created_at
		FROM watches
		WHERE auction_id = $1
	`
	rows, err := r.pool.Conn(ctx).Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch entries: %w", err)
	}
	defer rows.Close()

	var entries []*watch.Entry
	for rows.Next() {
		var e watch.Entry
		if err := rows.Scan(&e.AuctionID, &e.WatcherID, &e.NotifyOutbid, &e.NotifyEndingSoon, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}
