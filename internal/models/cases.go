package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Case item rarities.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
	RarityPremium   = "premium"
)

// Case item types. Coins drops are still issued as inventory items so the
// winner decides when to liquidate them, same as badges.
const (
	CaseItemTypeBadge = "badge"
	CaseItemTypeCoins = "coins"
)

// Case transaction types.
const (
	CaseTxOpen      = "open"
	CaseTxMultiOpen = "multi-open"
)

// DropRateScale is the total drop weight of a valid case pool. Drop rates
// are stored in basis points (1% == 100) so the cumulative walk stays in
// integer arithmetic.
const DropRateScale = 10000

// Case is a purchasable reward bundle with a weighted item pool.
type Case struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	Items     []CaseItem `json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CaseItem is one pool entry. The pool is always walked in ascending
// SortOrder so a given draw value selects the same entry every time.
type CaseItem struct {
	ID           uuid.UUID `json:"id"`
	CaseID       uuid.UUID `json:"case_id"`
	ItemType     string    `json:"item_type"`
	Rarity       string    `json:"rarity"`
	DropRateBP   int       `json:"drop_rate_bp"`
	DisplayValue int64     `json:"display_value"`
	BadgeName    string    `json:"badge_name,omitempty"`
	BadgeIconURL string    `json:"badge_icon_url,omitempty"`
	CoinAmount   int64     `json:"coin_amount,omitempty"`
	SortOrder    int       `json:"sort_order"`
}

// CaseTransaction records one case-open event, including a JSON snapshot of
// the items won so the audit trail survives later sell-backs.
type CaseTransaction struct {
	ID              uuid.UUID       `json:"id"`
	CaseID          uuid.UUID       `json:"case_id"`
	UserID          uuid.UUID       `json:"user_id"`
	ItemsWon        json.RawMessage `json:"items_won"`
	TotalValue      int64           `json:"total_value"`
	TransactionType string          `json:"transaction_type"`
	CreatedAt       time.Time       `json:"created_at"`
}
