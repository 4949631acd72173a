package grants

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/riverqueue/river"

	"github.com/uvlinks/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// mockGrants stores one grant with the conditional pending->credited flip.
type mockGrants struct {
	mu    sync.Mutex
	grant *models.TopUpGrant
}

func (m *mockGrants) GetByID(_ context.Context, id uuid.UUID) (*models.TopUpGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.grant
	return &cp, nil
}

func (m *mockGrants) MarkCreditedTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grant.Status != models.GrantStatusPending {
		return false, nil
	}
	m.grant.Status = models.GrantStatusCredited
	return true, nil
}

// mockLedger records credits.
type mockLedger struct {
	mu      sync.Mutex
	credits []int64
}

func (m *mockLedger) Credit(_ context.Context, _ pgx.Tx, _ uuid.UUID, amount int64, _, _ string, _ *uuid.UUID, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits = append(m.credits, amount)
	var total int64
	for _, c := range m.credits {
		total += c
	}
	return total, nil
}

func (m *mockLedger) Debit(context.Context, pgx.Tx, uuid.UUID, int64, string, string, *uuid.UUID, string) (int64, error) {
	return 0, nil
}
func (m *mockLedger) GetAccount(context.Context, uuid.UUID) (*models.Account, error) {
	return nil, nil
}
func (m *mockLedger) History(context.Context, uuid.UUID, int) ([]*models.LedgerEntry, error) {
	return nil, nil
}

func (m *mockLedger) creditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.credits)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGrantTopUpWorker_CreditsOnce(t *testing.T) {
	grant := &models.TopUpGrant{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Amount:      500,
		Provider:    "paypal",
		ProviderRef: "PAY-1",
		Status:      models.GrantStatusPending,
	}
	grants := &mockGrants{grant: grant}
	led := &mockLedger{}
	w := NewGrantTopUpWorker(mockPool{}, grants, led, nil)

	job := &river.Job[GrantTopUpArgs]{Args: GrantTopUpArgs{GrantID: grant.ID}}
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if led.creditCount() != 1 || led.credits[0] != 500 {
		t.Errorf("credits: got %v, want one credit of 500", led.credits)
	}
	if grant.Status != models.GrantStatusCredited {
		t.Errorf("grant status: got %q, want credited", grant.Status)
	}

	// A River retry of the same job must not credit again.
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("retried Work: %v", err)
	}
	if led.creditCount() != 1 {
		t.Errorf("credits after retry: got %d, want 1", led.creditCount())
	}
}
