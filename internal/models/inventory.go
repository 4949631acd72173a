package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is an owned copy of a case reward. It exists from the
// case-open that created it until the owner sells it back.
type InventoryItem struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	SourceCaseID   uuid.UUID `json:"source_case_id"`
	ItemType       string    `json:"item_type"`
	Rarity         string    `json:"rarity"`
	Name           string    `json:"name"`
	EstimatedValue int64     `json:"estimated_value"`
	WonAt          time.Time `json:"won_at"`
}
