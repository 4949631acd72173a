package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/models"
)

const listingColumns = `id, seller_id, item_type, sale_type, price, stock_limit, stock_sold, status, name, description, badge_icon_url, template_snapshot, denial_reason, created_at, updated_at`

type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

func (r *ListingRepo) Create(ctx context.Context, l *models.Listing) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO listings (id, seller_id, item_type, sale_type, price, stock_limit, status, name, description, badge_icon_url, template_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, l.ID, l.SellerID, l.ItemType, l.SaleType, l.Price, l.StockLimit, l.Status, l.Name, l.Description, l.BadgeIconURL, l.TemplateSnapshot).Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *ListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
}

// GetByIDForUpdate locks the listing row so concurrent purchases against the
// same listing serialize. Call within a transaction.
func (r *ListingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Listing, error) {
	return scanListing(tx.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id))
}

// Review transitions a pending listing to approved or denied. Returns false
// when the listing was not pending (the transition is conditional, so a
// double review cannot overwrite an earlier decision).
func (r *ListingRepo) Review(ctx context.Context, id uuid.UUID, status string, reason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings SET status = $2, denial_reason = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, status, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementStock sells one unit: the availability check and the increment
// are a single conditional UPDATE, and the status flips to sold_out in the
// same statement when the unit was the last one. Returns false when the
// listing is not approved or its stock is already exhausted.
func (r *ListingRepo) IncrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (stockSold int, status string, ok bool, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE listings
		SET stock_sold = stock_sold + 1,
		    status = CASE
		        WHEN sale_type = 'single' THEN 'sold_out'
		        WHEN sale_type = 'limited' AND stock_sold + 1 >= stock_limit THEN 'sold_out'
		        ELSE status
		    END,
		    updated_at = now()
		WHERE id = $1 AND status = 'approved'
		  AND (sale_type = 'unlimited'
		       OR (sale_type = 'single' AND stock_sold < 1)
		       OR (sale_type = 'limited' AND stock_sold < stock_limit))
		RETURNING stock_sold, status
	`, id).Scan(&stockSold, &status)
	if err == pgx.ErrNoRows {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return stockSold, status, true, nil
}

// Remove marks a seller's own pending or approved listing as removed.
func (r *ListingRepo) Remove(ctx context.Context, id, sellerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings SET status = 'removed', updated_at = now()
		WHERE id = $1 AND seller_id = $2 AND status IN ('pending', 'approved')
	`, id, sellerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ListingRepo) ListByStatus(ctx context.Context, status string) ([]*models.Listing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *ListingRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Listing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE seller_id = $1 ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ID, &l.SellerID, &l.ItemType, &l.SaleType, &l.Price, &l.StockLimit, &l.StockSold, &l.Status, &l.Name, &l.Description, &l.BadgeIconURL, &l.TemplateSnapshot, &l.DenialReason, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectListings(rows pgx.Rows) ([]*models.Listing, error) {
	var list []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
