package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Listing item types.
const (
	ItemTypeBadge    = "badge"
	ItemTypeTemplate = "template"
)

// Listing sale types.
const (
	SaleTypeSingle    = "single"
	SaleTypeLimited   = "limited"
	SaleTypeUnlimited = "unlimited"
)

// Listing statuses. denied and removed are terminal.
const (
	ListingStatusPending  = "pending"
	ListingStatusApproved = "approved"
	ListingStatusDenied   = "denied"
	ListingStatusSoldOut  = "sold_out"
	ListingStatusRemoved  = "removed"
)

// Price bounds for marketplace listings, in UV.
const (
	MinListingPrice int64 = 1
	MaxListingPrice int64 = 10000
)

// Listing is one marketplace offer. StockLimit is set only for limited
// sales; single sales carry an implicit stock of one.
type Listing struct {
	ID               uuid.UUID       `json:"id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	ItemType         string          `json:"item_type"`
	SaleType         string          `json:"sale_type"`
	Price            int64           `json:"price"`
	StockLimit       *int            `json:"stock_limit,omitempty"`
	StockSold        int             `json:"stock_sold"`
	Status           string          `json:"status"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	BadgeIconURL     string          `json:"badge_icon_url,omitempty"`
	TemplateSnapshot json.RawMessage `json:"template_snapshot,omitempty"`
	DenialReason     *string         `json:"denial_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// StockExhausted reports whether another unit can still be sold.
func (l *Listing) StockExhausted() bool {
	switch l.SaleType {
	case SaleTypeSingle:
		return l.StockSold >= 1
	case SaleTypeLimited:
		return l.StockLimit != nil && l.StockSold >= *l.StockLimit
	default:
		return false
	}
}

// Purchase records one successful marketplace transaction.
type Purchase struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	PricePaid int64     `json:"price_paid"`
	CreatedAt time.Time `json:"created_at"`
}
