package grants

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/models"
)

// GrantTopUpArgs is the queued job crediting one paid top-up.
type GrantTopUpArgs struct {
	GrantID uuid.UUID `json:"grant_id"`
}

func (GrantTopUpArgs) Kind() string { return "grant_topup" }

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// GrantStore is the grant repository contract the worker needs.
type GrantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TopUpGrant, error)
	MarkCreditedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// GrantTopUpWorker credits the ledger for a recorded top-up. The status flip
// and the credit share one transaction, and the flip is conditional, so a
// retried job can never credit twice.
type GrantTopUpWorker struct {
	river.WorkerDefaults[GrantTopUpArgs]
	pool   TxBeginner
	grants GrantStore
	ledger ledger.Service
	log    *slog.Logger
}

func NewGrantTopUpWorker(pool TxBeginner, grants GrantStore, ledgerSvc ledger.Service, log *slog.Logger) *GrantTopUpWorker {
	if log == nil {
		log = slog.Default()
	}
	return &GrantTopUpWorker{pool: pool, grants: grants, ledger: ledgerSvc, log: log}
}

func (w *GrantTopUpWorker) Work(ctx context.Context, job *river.Job[GrantTopUpArgs]) error {
	g, err := w.grants.GetByID(ctx, job.Args.GrantID)
	if err != nil {
		return fmt.Errorf("load grant %s: %w", job.Args.GrantID, err)
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin grant tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := w.grants.MarkCreditedTx(ctx, tx, g.ID)
	if err != nil {
		return fmt.Errorf("mark grant credited: %w", err)
	}
	if !ok {
		w.log.Info("top-up grant already credited, skipping", "grant_id", g.ID)
		return nil
	}

	ref := g.ID
	if _, err := w.ledger.Credit(ctx, tx, g.UserID, g.Amount, models.LedgerKindEarn, "UV top-up via "+g.Provider, &ref, models.ReferenceTypeTopUp); err != nil {
		return fmt.Errorf("credit top-up: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit grant tx: %w", err)
	}

	w.log.Info("top-up credited", "grant_id", g.ID, "user_id", g.UserID, "amount", g.Amount)
	return nil
}
