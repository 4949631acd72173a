package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/models"
)

type GrantRepo struct {
	pool *pgxpool.Pool
}

func NewGrantRepo(pool *pgxpool.Pool) *GrantRepo {
	return &GrantRepo{pool: pool}
}

// CreateTx records a provider-reported top-up inside the given transaction.
// The (provider, provider_ref) unique index makes replayed webhooks fail the
// insert instead of granting twice.
func (r *GrantRepo) CreateTx(ctx context.Context, tx pgx.Tx, g *models.TopUpGrant) error {
	return tx.QueryRow(ctx, `
		INSERT INTO topup_grants (id, user_id, amount, provider, provider_ref, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, g.ID, g.UserID, g.Amount, g.Provider, g.ProviderRef, g.Status).Scan(&g.CreatedAt)
}

func (r *GrantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TopUpGrant, error) {
	var g models.TopUpGrant
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, amount, provider, provider_ref, status, created_at
		FROM topup_grants WHERE id = $1
	`, id).Scan(&g.ID, &g.UserID, &g.Amount, &g.Provider, &g.ProviderRef, &g.Status, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("grant not found")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// MarkCreditedTx flips the grant pending -> credited. Returns false when the
// grant was already credited, so a retried job must not credit again.
func (r *GrantRepo) MarkCreditedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE topup_grants SET status = 'credited' WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
