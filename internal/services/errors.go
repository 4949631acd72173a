package services

import (
	"errors"
	"fmt"
)

// Typed engine errors. All are value-returned so callers branch with
// errors.Is; every failure aborts the whole atomic unit. ErrUnavailable is
// the only retryable kind.
var (
	ErrInvalidListingSpec = errors.New("invalid listing spec")
	ErrListingNotFound    = errors.New("listing not found")
	ErrNotPending         = errors.New("listing is not pending review")
	ErrNotApproved        = errors.New("listing is not approved for sale")
	ErrSoldOut            = errors.New("listing is sold out")
	ErrSelfPurchase       = errors.New("cannot purchase own listing")
	ErrReasonRequired     = errors.New("denial requires a reason")
	ErrNotOwner           = errors.New("item does not belong to caller")
	ErrEmptySelection     = errors.New("no items selected")
	ErrInvalidDropTable   = errors.New("invalid drop table")
	ErrInvalidOpenCount   = errors.New("invalid open count")
	ErrUnavailable        = errors.New("store unavailable")
)

// markUnavailable tags a transient store failure so callers know the same
// request may be retried.
func markUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
