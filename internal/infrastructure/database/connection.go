package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
)

// DBTX is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code runs
// standalone or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool wraps a pgx connection pool with transaction helpers.
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPool connects to Postgres using the given configuration.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pc.MaxConns = int32(cfg.MaxOpenConns)
	pc.MinConns = int32(cfg.MinIdleConns)
	pc.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("database pool initialized",
		zap.Int("max_conns", cfg.MaxOpenConns),
		zap.Int("min_conns", cfg.MinIdleConns))

	return &Pool{pool: pool, logger: logger}, nil
}

// DB returns the raw pool for non-transactional reads.
func (p *Pool) DB() DBTX {
	return p.pool
}

type txKey struct{}

// Conn returns the transaction bound to ctx when inside InTx, otherwise
// the pool. Repositories resolve their connection through here so the
// same instance works in and out of transactions.
func (p *Pool) Conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.pool
}

// Close shuts down the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// HealthCheck verifies connectivity.
func (p *Pool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// InTx runs fn inside a transaction. All bid-processing and settlement
// sequences go through here so that hold bookkeeping and auction updates
// commit or roll back together. Serialization failures and lock timeouts
// surface as concurrency conflicts.
func (p *Pool) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.NewInternalError("failed to begin transaction").WithCause(err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			p.logger.Error("transaction rollback failed", zap.Error(rbErr))
		}
		return MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MapError(errors.Wrap(err, "failed to commit transaction"))
	}
	return nil
}

// MapError converts driver-level contention errors into the engine's
// concurrency_conflict taxonomy; everything else passes through.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.IsType(err, errors.ErrorTypeConcurrency) {
		return err
	}
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return errors.NewConcurrencyError(
				"lost the race for the auction lock, retry with a fresh read").
				WithCause(err)
		}
	}
	return err
}
