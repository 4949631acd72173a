package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/models"
)

// ErrCaseNotFound is returned when a case id does not exist in the catalog.
var ErrCaseNotFound = errors.New("case not found")

type CaseRepo struct {
	pool *pgxpool.Pool
}

func NewCaseRepo(pool *pgxpool.Pool) *CaseRepo {
	return &CaseRepo{pool: pool}
}

// Create inserts the case and its full item pool in one transaction.
func (r *CaseRepo) Create(ctx context.Context, c *models.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		INSERT INTO cases (id, name, price)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Price).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	if err := insertCaseItems(ctx, tx, c.ID, c.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplaceItems swaps the case's pool and price atomically. The old pool is
// deleted, not mutated, so in-flight opens that already read it are
// unaffected.
func (r *CaseRepo) ReplaceItems(ctx context.Context, c *models.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE cases SET name = $2, price = $3, updated_at = now() WHERE id = $1`, c.ID, c.Name, c.Price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM case_items WHERE case_id = $1`, c.ID); err != nil {
		return err
	}
	if err := insertCaseItems(ctx, tx, c.ID, c.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertCaseItems(ctx context.Context, tx pgx.Tx, caseID uuid.UUID, items []models.CaseItem) error {
	for i := range items {
		it := &items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.CaseID = caseID
		if _, err := tx.Exec(ctx, `
			INSERT INTO case_items (id, case_id, item_type, rarity, drop_rate_bp, display_value, badge_name, badge_icon_url, coin_amount, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, it.ID, it.CaseID, it.ItemType, it.Rarity, it.DropRateBP, it.DisplayValue, it.BadgeName, it.BadgeIconURL, it.CoinAmount, it.SortOrder); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns the case with its pool in ascending sort_order, the fixed
// order the opening walk uses.
func (r *CaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price, created_at, updated_at FROM cases WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Price, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, item_type, rarity, drop_rate_bp, display_value, badge_name, badge_icon_url, coin_amount, sort_order
		FROM case_items WHERE case_id = $1 ORDER BY sort_order ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.CaseItem
		if err := rows.Scan(&it.ID, &it.CaseID, &it.ItemType, &it.Rarity, &it.DropRateBP, &it.DisplayValue, &it.BadgeName, &it.BadgeIconURL, &it.CoinAmount, &it.SortOrder); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepo) List(ctx context.Context) ([]*models.Case, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price, created_at, updated_at FROM cases ORDER BY price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Case
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// CreateTransactionTx records one case-open event inside the transaction.
func (r *CaseRepo) CreateTransactionTx(ctx context.Context, tx pgx.Tx, ct *models.CaseTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO case_transactions (id, case_id, user_id, items_won, total_value, transaction_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, ct.ID, ct.CaseID, ct.UserID, ct.ItemsWon, ct.TotalValue, ct.TransactionType).Scan(&ct.CreatedAt)
}
