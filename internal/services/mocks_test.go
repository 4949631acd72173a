package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/models"
	"github.com/uvlinks/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory mocks for the repo interfaces and ledger.Service. They reproduce
// the store's atomicity properties: conditional debits and stock increments
// are single serialized operations, and row locks taken via *ForUpdate are
// held until the transaction commits or rolls back.
// ---------------------------------------------------------------------------

// --- memTx satisfies pgx.Tx; Commit/Rollback run the registered release hooks. ---

type memTx struct {
	mu       sync.Mutex
	done     bool
	releases []func()
}

func (t *memTx) onRelease(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releases = append(t.releases, fn)
}

func (t *memTx) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.releases[i]()
	}
}

func (t *memTx) Commit(context.Context) error   { t.finish(); return nil }
func (t *memTx) Rollback(context.Context) error { t.finish(); return nil }

func (t *memTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *memTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// --- memPool implements TxBeginner. ---

type memPool struct{}

func (memPool) Begin(context.Context) (pgx.Tx, error) { return &memTx{}, nil }

// --- memLedger implements ledger.Service over a mutex-protected map, with the
// same conditional-debit semantics as the SQL repository. ---

type memLedger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	entries  []*models.LedgerEntry
}

func newMemLedger() *memLedger {
	return &memLedger{accounts: make(map[uuid.UUID]*models.Account)}
}

func (m *memLedger) seed(userID uuid.UUID, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &models.Account{UserID: userID, Balance: balance, TotalEarned: balance}
	m.entries = append(m.entries, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, Amount: balance, Kind: models.LedgerKindInitial,
	})
}

func (m *memLedger) Credit(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int64, kind, desc string, refID *uuid.UUID, refType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		a = &models.Account{UserID: userID}
		m.accounts[userID] = a
	}
	a.Balance += amount
	a.TotalEarned += amount
	m.entries = append(m.entries, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, Amount: amount, Kind: kind, Description: desc,
		ReferenceID: refID, ReferenceType: refType,
	})
	return a.Balance, nil
}

func (m *memLedger) Debit(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int64, kind, desc string, refID *uuid.UUID, refType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok || a.Balance < amount {
		return 0, ledger.ErrInsufficientFunds
	}
	a.Balance -= amount
	a.TotalSpent += amount
	m.entries = append(m.entries, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, Amount: -amount, Kind: kind, Description: desc,
		ReferenceID: refID, ReferenceType: refType,
	})
	return a.Balance, nil
}

func (m *memLedger) GetAccount(_ context.Context, userID uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return &models.Account{UserID: userID}, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memLedger) History(_ context.Context, userID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memLedger) balance(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[userID]; ok {
		return a.Balance
	}
	return 0
}

// entrySum returns the signed sum of a user's ledger entries.
func (m *memLedger) entrySum(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum
}

func (m *memLedger) entryCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

var _ ledger.Service = (*memLedger)(nil)

// --- memListings implements MarketListingRepo. GetByIDForUpdate acquires a
// per-listing lock released when the transaction finishes, mirroring
// SELECT ... FOR UPDATE. ---

type memListings struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*models.Listing
	rowLocks map[uuid.UUID]*sync.Mutex
}

func newMemListings(ls ...*models.Listing) *memListings {
	m := &memListings{
		listings: make(map[uuid.UUID]*models.Listing),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
	}
	for _, l := range ls {
		cp := *l
		m.listings[l.ID] = &cp
		m.rowLocks[l.ID] = &sync.Mutex{}
	}
	return m
}

func (m *memListings) Create(_ context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.listings[l.ID] = &cp
	m.rowLocks[l.ID] = &sync.Mutex{}
	return nil
}

func (m *memListings) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (m *memListings) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*models.Listing, error) {
	m.mu.Lock()
	rowLock, ok := m.rowLocks[id]
	m.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	rowLock.Lock()
	if mt, ok := tx.(*memTx); ok {
		mt.onRelease(rowLock.Unlock)
	} else {
		rowLock.Unlock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.listings[id]
	return &cp, nil
}

func (m *memListings) Review(_ context.Context, id uuid.UUID, status string, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok || l.Status != models.ListingStatusPending {
		return false, nil
	}
	l.Status = status
	l.DenialReason = reason
	return true, nil
}

func (m *memListings) IncrementStock(_ context.Context, _ pgx.Tx, id uuid.UUID) (int, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok || l.Status != models.ListingStatusApproved || l.StockExhausted() {
		return 0, "", false, nil
	}
	l.StockSold++
	if l.StockExhausted() {
		l.Status = models.ListingStatusSoldOut
	}
	return l.StockSold, l.Status, true, nil
}

func (m *memListings) Remove(_ context.Context, id, sellerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok || l.SellerID != sellerID {
		return false, nil
	}
	if l.Status != models.ListingStatusPending && l.Status != models.ListingStatusApproved {
		return false, nil
	}
	l.Status = models.ListingStatusRemoved
	return true, nil
}

func (m *memListings) ListByStatus(_ context.Context, status string) ([]*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Listing
	for _, l := range m.listings {
		if l.Status == status {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memListings) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Listing
	for _, l := range m.listings {
		if l.SellerID == sellerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memListings) get(id uuid.UUID) *models.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.listings[id]
	return &cp
}

// --- memPurchases implements MarketPurchaseRepo. ---

type memPurchases struct {
	mu        sync.Mutex
	purchases []*models.Purchase
}

func (m *memPurchases) CreateTx(_ context.Context, _ pgx.Tx, p *models.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.purchases = append(m.purchases, &cp)
	return nil
}

func (m *memPurchases) Exists(_ context.Context, buyerID, listingID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.BuyerID == buyerID && p.ListingID == listingID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPurchases) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.purchases)
}

// --- memCases implements CaseCatalogRepo. ---

type memCases struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*models.Case
	txs   []*models.CaseTransaction
}

func newMemCases(cs ...*models.Case) *memCases {
	m := &memCases{cases: make(map[uuid.UUID]*models.Case)}
	for _, c := range cs {
		cp := *c
		m.cases[c.ID] = &cp
	}
	return m
}

func (m *memCases) Create(_ context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *memCases) ReplaceItems(_ context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return fmt.Errorf("case %s not found", c.ID)
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *memCases) GetByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, repository.ErrCaseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCases) List(_ context.Context) ([]*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Case
	for _, c := range m.cases {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCases) CreateTransactionTx(_ context.Context, _ pgx.Tx, ct *models.CaseTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ct
	m.txs = append(m.txs, &cp)
	return nil
}

func (m *memCases) txCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// --- memInventory implements CaseInventoryRepo and SellInventoryRepo. ---

type memInventory struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.InventoryItem
}

func newMemInventory(its ...*models.InventoryItem) *memInventory {
	m := &memInventory{items: make(map[uuid.UUID]*models.InventoryItem)}
	for _, it := range its {
		cp := *it
		m.items[it.ID] = &cp
	}
	return m
}

func (m *memInventory) CreateTx(_ context.Context, _ pgx.Tx, it *models.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memInventory) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.InventoryItem
	for _, it := range m.items {
		if it.OwnerID == ownerID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInventory) GetByIDsForUpdate(_ context.Context, _ pgx.Tx, ids []uuid.UUID) ([]*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.InventoryItem
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInventory) GetByOwnerForUpdate(_ context.Context, _ pgx.Tx, ownerID uuid.UUID) ([]*models.InventoryItem, error) {
	return m.ListByOwner(context.Background(), ownerID)
}

func (m *memInventory) DeleteByIDsTx(_ context.Context, _ pgx.Tx, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.items, id)
	}
	return nil
}

func (m *memInventory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
