package models

import (
	"time"

	"github.com/google/uuid"
)

// Top-up grant statuses. A grant goes pending -> credited exactly once; the
// worker's conditional status flip makes retried jobs no-ops.
const (
	GrantStatusPending  = "pending"
	GrantStatusCredited = "credited"
)

// TopUpGrant records a paid UV top-up reported by the payment provider.
// The ledger credit happens asynchronously in the grant worker.
type TopUpGrant struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int64     `json:"amount"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
