package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/models"
)

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// CreateTx inserts a purchase row inside the given transaction.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Purchase) error {
	return tx.QueryRow(ctx, `
		INSERT INTO purchases (id, listing_id, buyer_id, price_paid)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.ListingID, p.BuyerID, p.PricePaid).Scan(&p.CreatedAt)
}

// Exists reports whether the buyer has a purchase for the listing. Used for
// ownership checks on already-bought badges and templates.
func (r *PurchaseRepo) Exists(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM purchases WHERE buyer_id = $1 AND listing_id = $2)
	`, buyerID, listingID).Scan(&exists)
	return exists, err
}

func (r *PurchaseRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Purchase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, buyer_id, price_paid, created_at
		FROM purchases WHERE buyer_id = $1 ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Purchase
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.ListingID, &p.BuyerID, &p.PricePaid, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
