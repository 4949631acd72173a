package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry kinds.
const (
	LedgerKindEarn    = "earn"
	LedgerKindSpend   = "spend"
	LedgerKindRefund  = "refund"
	LedgerKindInitial = "initial"
)

// Ledger reference types, identifying what a ledger entry points at.
const (
	ReferenceTypeListing = "listing"
	ReferenceTypeCase    = "case"
	ReferenceTypeSale    = "sale"
	ReferenceTypeTopUp   = "topup"
	ReferenceTypeSignup  = "signup"
)

// LedgerEntry is one append-only movement of UV. Entries are never mutated
// or deleted; the signed sum of a user's entries equals the account balance.
type LedgerEntry struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Amount        int64      `json:"amount"`
	Kind          string     `json:"kind"`
	Description   string     `json:"description"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty"`
	ReferenceType string     `json:"reference_type,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
