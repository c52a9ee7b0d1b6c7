package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"main/internal/domain/interfaces"
)

// Repository answers wallet/client access questions against the clients
// table: an actor controls a client either as its advisor or as its linked
// user account. Boolean only, no partial grants.
type Repository struct {
	pool *pgxpool.Pool
}

var _ interfaces.AccessChecker = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

func (r *Repository) CanAccessWallet(ctx context.Context, walletID, actorID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM wallets w
			INNER JOIN clients c ON c.id = w.client_id
			WHERE w.id = $1 AND (c.advisor_id = $2 OR c.user_id = $2)
		)`
	var allowed bool
	if err := r.pool.QueryRow(ctx, query, walletID, actorID).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

func (r *Repository) CanAccessClient(ctx context.Context, clientID, actorID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM clients
			WHERE id = $1 AND (advisor_id = $2 OR user_id = $2)
		)`
	var allowed bool
	if err := r.pool.QueryRow(ctx, query, clientID, actorID).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, nil
}
