package portfolio

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"main/internal/domain/interfaces"
)

const uniqueViolationCode = "23505"

// Repository is the pgx-backed durable store for wallets, positions, assets,
// transactions and audit logs. Monetary columns are NUMERIC and are read and
// written as shopspring decimals through the registered codec.
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ interfaces.LedgerRepository = (*Repository)(nil)
	_ interfaces.AssetRepository  = (*Repository)(nil)
)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// InTx runs fn inside one database transaction. Every read and write issued
// through the handle commits or rolls back together with the audit rows.
func (r *Repository) InTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ledgerTx scopes repository writes to one pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

var _ interfaces.LedgerTx = (*ledgerTx)(nil)

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// mapStoreError translates driver errors into the storage sentinels the
// service layer branches on.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return interfaces.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %s", interfaces.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
