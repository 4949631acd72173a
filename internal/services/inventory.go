package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/models"
)

// SellInventoryRepo is the inventory repository interface used for sell-back.
type SellInventoryRepo interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.InventoryItem, error)
	GetByIDsForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]*models.InventoryItem, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) ([]*models.InventoryItem, error)
	DeleteByIDsTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error
}

// InventoryService owns issued items and batch liquidation.
type InventoryService struct {
	pool   TxBeginner
	items  SellInventoryRepo
	ledger ledger.Service
	log    *slog.Logger
}

func NewInventoryService(pool TxBeginner, items SellInventoryRepo, ledgerSvc ledger.Service, log *slog.Logger) *InventoryService {
	if log == nil {
		log = slog.Default()
	}
	return &InventoryService{pool: pool, items: items, ledger: ledgerSvc, log: log}
}

// SellResult is returned on a successful sell-back.
type SellResult struct {
	SoldCount  int   `json:"sold_count"`
	Total      int64 `json:"total"`
	NewBalance int64 `json:"new_balance"`
}

// SellItems liquidates the selected items: one ledger credit for the summed
// value, then the items are deleted. The batch is all-or-nothing; one foreign
// or missing id fails the whole call with no credit and no deletion.
func (s *InventoryService) SellItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (*SellResult, error) {
	ids := dedupeIDs(itemIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, markUnavailable("begin sell", err)
	}
	defer tx.Rollback(ctx)

	items, err := s.items.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, markUnavailable("load items", err)
	}
	// A targeted id that is missing was either never owned or already sold;
	// both fail the batch the same way.
	if len(items) != len(ids) {
		return nil, ErrNotOwner
	}
	for _, it := range items {
		if it.OwnerID != userID {
			return nil, ErrNotOwner
		}
	}
	return s.liquidate(ctx, tx, userID, items)
}

// SellAll liquidates the user's entire inventory in one batch.
func (s *InventoryService) SellAll(ctx context.Context, userID uuid.UUID) (*SellResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, markUnavailable("begin sell", err)
	}
	defer tx.Rollback(ctx)

	items, err := s.items.GetByOwnerForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, markUnavailable("load items", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptySelection
	}
	return s.liquidate(ctx, tx, userID, items)
}

func (s *InventoryService) liquidate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, items []*models.InventoryItem) (*SellResult, error) {
	var total int64
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		total += it.EstimatedValue
		ids = append(ids, it.ID)
	}

	newBalance, err := s.ledger.Credit(ctx, tx, userID, total, models.LedgerKindEarn, "inventory sell-back", nil, models.ReferenceTypeSale)
	if err != nil {
		return nil, markUnavailable("credit sale", err)
	}
	if err := s.items.DeleteByIDsTx(ctx, tx, ids); err != nil {
		return nil, markUnavailable("delete items", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, markUnavailable("commit sell", err)
	}

	s.log.Info("inventory sold", "user_id", userID, "count", len(ids), "total", total)
	return &SellResult{SoldCount: len(ids), Total: total, NewBalance: newBalance}, nil
}

// ListInventory returns the user's unsold items, newest first.
func (s *InventoryService) ListInventory(ctx context.Context, userID uuid.UUID) ([]*models.InventoryItem, error) {
	return s.items.ListByOwner(ctx, userID)
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
