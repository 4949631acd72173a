package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/models"
)

var errInsufficientFunds = errors.New("insufficient funds")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Credit runs inside the caller's transaction. It upserts the account row
// (creating it on a user's first credit), adds amount to balance and
// total_earned, and appends exactly one ledger entry.
func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		INSERT INTO accounts (user_id, balance, total_earned, total_spent)
		VALUES ($1, $2, $2, 0)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = accounts.balance + $2, total_earned = accounts.total_earned + $2, updated_at = now()
		RETURNING balance
	`, userID, amount).Scan(&newBalance)
	if err != nil {
		return 0, err
	}
	if err := r.appendEntry(ctx, tx, userID, amount, kind, description, refID, refType); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit runs inside the caller's transaction. The balance check and the
// decrement are one conditional UPDATE, so two concurrent debits can never
// both spend the same funds. Returns ErrInsufficientFunds with no effect
// when the balance is too low.
func (r *Repository) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance - $1, total_spent = total_spent + $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errInsufficientFunds
	}
	if err != nil {
		return 0, err
	}
	if err := r.appendEntry(ctx, tx, userID, -amount, kind, description, refID, refType); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (r *Repository) appendEntry(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, kind, description, reference_id, reference_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), userID, amount, kind, description, refID, refType)
	return err
}

// GetAccount returns the account for a user, or a zero-balance account if
// the user has no ledger activity yet.
func (r *Repository) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM accounts WHERE user_id = $1
	`, userID).Scan(&a.UserID, &a.Balance, &a.TotalEarned, &a.TotalSpent, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.Account{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// History returns the user's ledger entries, newest first.
func (r *Repository) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, kind, description, reference_id, reference_type, created_at
		FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var refType *string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.Description, &e.ReferenceID, &refType, &e.CreatedAt); err != nil {
			return nil, err
		}
		if refType != nil {
			e.ReferenceType = *refType
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
