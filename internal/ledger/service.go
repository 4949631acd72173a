package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uvlinks/backend/internal/models"
)

// Service is the only mutation path for UV balances. Every credit and debit
// appends a ledger entry in the same transaction, so the running balance can
// never drift from the entry log.
type Service interface {
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) (int64, error)
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) (int64, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

var errNonPositiveAmount = errors.New("ledger amount must be positive")

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) (int64, error) {
	if amount <= 0 {
		return 0, errNonPositiveAmount
	}
	return s.repo.Credit(ctx, tx, userID, amount, kind, description, refID, refType)
}

func (s *service) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, kind, description string, refID *uuid.UUID, refType string) (int64, error) {
	if amount <= 0 {
		return 0, errNonPositiveAmount
	}
	return s.repo.Debit(ctx, tx, userID, amount, kind, description, refID, refType)
}

func (s *service) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.History(ctx, userID, limit)
}

// ErrInsufficientFunds is returned by Debit when the balance is lower than
// the requested amount. The debit has no partial effect in that case.
var ErrInsufficientFunds = errInsufficientFunds
