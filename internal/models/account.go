package models

import (
	"time"

	"github.com/google/uuid"
)

// SignupBonus is the UV balance granted to every new user at registration.
const SignupBonus int64 = 100

// Account is the durable UV balance for one user. Balance is always
// non-negative and equals TotalEarned - TotalSpent; both sides of that
// equation are updated in the same transaction as the ledger entry.
type Account struct {
	UserID      uuid.UUID `json:"user_id"`
	Balance     int64     `json:"balance"`
	TotalEarned int64     `json:"total_earned"`
	TotalSpent  int64     `json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
