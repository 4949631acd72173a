package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// MarketListingRepo is the listing repository interface used by the marketplace.
type MarketListingRepo interface {
	Create(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Listing, error)
	Review(ctx context.Context, id uuid.UUID, status string, reason *string) (bool, error)
	IncrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (stockSold int, status string, ok bool, err error)
	Remove(ctx context.Context, id, sellerID uuid.UUID) (bool, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Listing, error)
}

// MarketPurchaseRepo is the purchase repository interface used by the marketplace.
type MarketPurchaseRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Purchase) error
	Exists(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error)
}

// MarketplaceService owns the listing lifecycle and atomic purchase execution.
type MarketplaceService struct {
	pool      TxBeginner
	listings  MarketListingRepo
	purchases MarketPurchaseRepo
	ledger    ledger.Service
	log       *slog.Logger
}

func NewMarketplaceService(pool TxBeginner, listings MarketListingRepo, purchases MarketPurchaseRepo, ledgerSvc ledger.Service, log *slog.Logger) *MarketplaceService {
	if log == nil {
		log = slog.Default()
	}
	return &MarketplaceService{pool: pool, listings: listings, purchases: purchases, ledger: ledgerSvc, log: log}
}

// ListingSpec is the seller-provided input for a new listing.
type ListingSpec struct {
	ItemType         string          `json:"item_type"`
	SaleType         string          `json:"sale_type"`
	Price            int64           `json:"price"`
	StockLimit       *int            `json:"stock_limit,omitempty"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	BadgeIconURL     string          `json:"badge_icon_url,omitempty"`
	TemplateSnapshot json.RawMessage `json:"template_snapshot,omitempty"`
}

// CreateListing validates the submission and stores the listing as pending review.
func (s *MarketplaceService) CreateListing(ctx context.Context, sellerID uuid.UUID, spec ListingSpec) (*models.Listing, error) {
	if err := validateListingSpec(spec); err != nil {
		return nil, err
	}
	l := &models.Listing{
		ID:               uuid.New(),
		SellerID:         sellerID,
		ItemType:         spec.ItemType,
		SaleType:         spec.SaleType,
		Price:            spec.Price,
		Status:           models.ListingStatusPending,
		Name:             strings.TrimSpace(spec.Name),
		Description:      spec.Description,
		BadgeIconURL:     spec.BadgeIconURL,
		TemplateSnapshot: spec.TemplateSnapshot,
	}
	if spec.SaleType == models.SaleTypeLimited {
		l.StockLimit = spec.StockLimit
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, markUnavailable("create listing", err)
	}
	return l, nil
}

func validateListingSpec(spec ListingSpec) error {
	switch spec.ItemType {
	case models.ItemTypeBadge, models.ItemTypeTemplate:
	default:
		return fmt.Errorf("%w: unknown item_type %q", ErrInvalidListingSpec, spec.ItemType)
	}
	switch spec.SaleType {
	case models.SaleTypeSingle, models.SaleTypeLimited, models.SaleTypeUnlimited:
	default:
		return fmt.Errorf("%w: unknown sale_type %q", ErrInvalidListingSpec, spec.SaleType)
	}
	if spec.Price < models.MinListingPrice || spec.Price > models.MaxListingPrice {
		return fmt.Errorf("%w: price must be between %d and %d", ErrInvalidListingSpec, models.MinListingPrice, models.MaxListingPrice)
	}
	if spec.SaleType == models.SaleTypeLimited && (spec.StockLimit == nil || *spec.StockLimit < 1) {
		return fmt.Errorf("%w: limited sale requires stock_limit >= 1", ErrInvalidListingSpec)
	}
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidListingSpec)
	}
	return nil
}

// ReviewListing transitions a pending listing to approved or denied. Only
// moderators reach this call (enforced by middleware); denial requires a reason.
func (s *MarketplaceService) ReviewListing(ctx context.Context, moderatorID, listingID uuid.UUID, approve bool, reason string) error {
	status := models.ListingStatusApproved
	var denialReason *string
	if !approve {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return ErrReasonRequired
		}
		status = models.ListingStatusDenied
		denialReason = &reason
	}
	ok, err := s.listings.Review(ctx, listingID, status, denialReason)
	if err != nil {
		return markUnavailable("review listing", err)
	}
	if !ok {
		return ErrNotPending
	}
	s.log.Info("listing reviewed", "listing_id", listingID, "moderator_id", moderatorID, "status", status)
	return nil
}

// PurchaseResult is returned on a successful purchase.
type PurchaseResult struct {
	Purchase      *models.Purchase `json:"purchase"`
	NewBalance    int64            `json:"new_balance"`
	ListingStatus string           `json:"listing_status"`
}

// Purchase executes one marketplace purchase as a single atomic unit: debit
// buyer, credit seller, sell one unit of stock, record the purchase. The
// listing row is locked first, so the stock decision and the mutation happen
// under the same lock; any failed precondition aborts with no effect.
func (s *MarketplaceService) Purchase(ctx context.Context, buyerID, listingID uuid.UUID) (*PurchaseResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, markUnavailable("begin purchase", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.listings.GetByIDForUpdate(ctx, tx, listingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, markUnavailable("load listing", err)
	}
	switch {
	case l.Status == models.ListingStatusSoldOut:
		return nil, ErrSoldOut
	case l.Status != models.ListingStatusApproved:
		return nil, ErrNotApproved
	case l.SellerID == buyerID:
		return nil, ErrSelfPurchase
	case l.StockExhausted():
		return nil, ErrSoldOut
	}

	ref := l.ID
	newBalance, err := s.ledger.Debit(ctx, tx, buyerID, l.Price, models.LedgerKindSpend, "marketplace purchase: "+l.Name, &ref, models.ReferenceTypeListing)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, ledger.ErrInsufficientFunds
		}
		return nil, markUnavailable("debit buyer", err)
	}
	if _, err := s.ledger.Credit(ctx, tx, l.SellerID, l.Price, models.LedgerKindEarn, "marketplace sale: "+l.Name, &ref, models.ReferenceTypeListing); err != nil {
		return nil, markUnavailable("credit seller", err)
	}

	_, status, ok, err := s.listings.IncrementStock(ctx, tx, listingID)
	if err != nil {
		return nil, markUnavailable("increment stock", err)
	}
	if !ok {
		return nil, ErrSoldOut
	}

	p := &models.Purchase{ID: uuid.New(), ListingID: listingID, BuyerID: buyerID, PricePaid: l.Price}
	if err := s.purchases.CreateTx(ctx, tx, p); err != nil {
		return nil, markUnavailable("record purchase", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, markUnavailable("commit purchase", err)
	}

	s.log.Info("listing purchased", "listing_id", listingID, "buyer_id", buyerID, "price", l.Price, "status", status)
	return &PurchaseResult{Purchase: p, NewBalance: newBalance, ListingStatus: status}, nil
}

// RemoveListing lets a seller take their own pending or approved listing off
// the market. Removed is terminal.
func (s *MarketplaceService) RemoveListing(ctx context.Context, sellerID, listingID uuid.UUID) error {
	ok, err := s.listings.Remove(ctx, listingID, sellerID)
	if err != nil {
		return markUnavailable("remove listing", err)
	}
	if !ok {
		return ErrListingNotFound
	}
	return nil
}

// BrowseApproved returns the listings currently purchasable.
func (s *MarketplaceService) BrowseApproved(ctx context.Context) ([]*models.Listing, error) {
	return s.listings.ListByStatus(ctx, models.ListingStatusApproved)
}

// PendingQueue returns listings awaiting moderation.
func (s *MarketplaceService) PendingQueue(ctx context.Context) ([]*models.Listing, error) {
	return s.listings.ListByStatus(ctx, models.ListingStatusPending)
}

// IsPurchased reports whether the buyer already owns the listing's item.
func (s *MarketplaceService) IsPurchased(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error) {
	return s.purchases.Exists(ctx, buyerID, listingID)
}

// GetListing returns one listing by id.
func (s *MarketplaceService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}
