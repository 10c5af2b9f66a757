package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Transactor runs a function inside a single all-or-nothing transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Transactor = (*PgTransactor)(nil)

// PgTransactor stores the active pgx.Tx in the context so repositories join it.
type PgTransactor struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgTransactor constructs a transactor over pool.
func NewPgTransactor(pool *pgxpool.Pool, logger *zap.Logger) *PgTransactor {
	return &PgTransactor{pool: pool, logger: logger}
}

type txKey struct{}

// WithTx commits when fn returns nil and rolls back otherwise. A call nested
// in an outer WithTx reuses the outer transaction.
func (t *PgTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ctxWithTx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if txErr != nil {
			if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				t.logger.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := tx.Commit(ctx); err != nil {
			txErr = fmt.Errorf("commit tx: %w", err)
		}
	}()

	return fn(ctxWithTx)
}

// Conn returns the transaction bound to ctx, or pool when there is none.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return pool
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// NoopTransactor runs fn directly. Used with stores that have no transactions.
type NoopTransactor struct{}

func (NoopTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
