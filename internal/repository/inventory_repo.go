package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/models"
)

const inventoryColumns = `id, owner_id, source_case_id, item_type, rarity, name, estimated_value, won_at`

type InventoryRepo struct {
	pool *pgxpool.Pool
}

func NewInventoryRepo(pool *pgxpool.Pool) *InventoryRepo {
	return &InventoryRepo{pool: pool}
}

// CreateTx inserts a won item inside the given transaction.
func (r *InventoryRepo) CreateTx(ctx context.Context, tx pgx.Tx, it *models.InventoryItem) error {
	return tx.QueryRow(ctx, `
		INSERT INTO inventory_items (id, owner_id, source_case_id, item_type, rarity, name, estimated_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING won_at
	`, it.ID, it.OwnerID, it.SourceCaseID, it.ItemType, it.Rarity, it.Name, it.EstimatedValue).Scan(&it.WonAt)
}

func (r *InventoryRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE owner_id = $1 ORDER BY won_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventory(rows)
}

// GetByIDsForUpdate locks and returns the rows for the given ids regardless
// of owner; the caller compares owners so a foreign id fails the whole batch.
// Call within a transaction.
func (r *InventoryRepo) GetByIDsForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]*models.InventoryItem, error) {
	rows, err := tx.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ANY($1) FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventory(rows)
}

// GetByOwnerForUpdate locks and returns everything the owner holds. Call
// within a transaction.
func (r *InventoryRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) ([]*models.InventoryItem, error) {
	rows, err := tx.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE owner_id = $1 FOR UPDATE`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventory(rows)
}

// DeleteByIDsTx removes sold items inside the given transaction.
func (r *InventoryRepo) DeleteByIDsTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM inventory_items WHERE id = ANY($1)`, ids)
	return err
}

func collectInventory(rows pgx.Rows) ([]*models.InventoryItem, error) {
	var list []*models.InventoryItem
	for rows.Next() {
		var it models.InventoryItem
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.SourceCaseID, &it.ItemType, &it.Rarity, &it.Name, &it.EstimatedValue, &it.WonAt); err != nil {
			return nil, err
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}
