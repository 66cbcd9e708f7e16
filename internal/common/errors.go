// Package common — errors.go defines the error taxonomy shared by every module.
// Each error carries a machine-checkable category so the HTTP layer can map it
// to a status code, and a human-readable message reported verbatim to the user.
package common

import (
	"errors"
	"fmt"
)

// Category classifies a failure for callers.
type Category string

const (
	// CategoryValidation — caller input violates a stated constraint.
	// Reported verbatim, never retried automatically.
	CategoryValidation Category = "validation"
	// CategoryConflict — an atomic operation found its precondition no longer
	// true at commit time. Reported as "try again", never retried silently.
	CategoryConflict Category = "conflict"
	// CategoryAuth — no authenticated user on the request.
	CategoryAuth Category = "auth"
	// CategoryUnavailable — an upstream source failed. Absorbed internally by
	// fallback chains and never surfaced to users.
	CategoryUnavailable Category = "unavailable"
	// CategoryUnexpected — anything else. Logged with detail, reported generically.
	CategoryUnexpected Category = "unexpected"
)

// Error is a categorized error. All user-facing failures are one of these.
type Error struct {
	Category Category
	Message  string
}

func (e *Error) Error() string { return e.Message }

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a concurrency-conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Category: CategoryConflict, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf extracts the category from err, walking wrapped errors.
// Unknown errors are unexpected.
func CategoryOf(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryUnexpected
}

// Ledger and transfer errors
var (
	// ErrInsufficientBalance — not enough available AFX for the operation
	ErrInsufficientBalance = &Error{CategoryValidation, "insufficient available balance"}
	// ErrSelfTrade — attempt to trade against one's own ad
	ErrSelfTrade = &Error{CategoryValidation, "you cannot trade with yourself"}
	// ErrSelfTransfer — attempt to transfer AFX to oneself
	ErrSelfTransfer = &Error{CategoryValidation, "you cannot transfer to yourself"}
	// ErrInvalidAmount — zero or negative amount
	ErrInvalidAmount = &Error{CategoryValidation, "amount must be greater than 0"}
	// ErrUserNotFound — recipient or profile lookup came back empty
	ErrUserNotFound = &Error{CategoryValidation, "user not found"}
	// ErrDuplicateTransfer — idempotency key was already used
	ErrDuplicateTransfer = &Error{CategoryConflict, "transfer with this idempotency key was already submitted"}
)

// Marketplace errors
var (
	// ErrAdNotFound — ad does not exist or is no longer active
	ErrAdNotFound = &Error{CategoryValidation, "ad not found or no longer active"}
	// ErrAdExhausted — remaining amount hit zero between read and commit
	ErrAdExhausted = &Error{CategoryConflict, "ad has no remaining amount, try another ad"}
	// ErrNotAdOwner — cancel attempted by someone other than the poster
	ErrNotAdOwner = &Error{CategoryValidation, "only the ad owner can cancel it"}
)

// Mining errors
var (
	// ErrMiningCooldown — claim attempted before next_eligible_at
	ErrMiningCooldown = &Error{CategoryConflict, "mining not available yet"}
)

// Auth / operator errors
var (
	// ErrUnauthenticated — request carried no user identity
	ErrUnauthenticated = &Error{CategoryAuth, "authentication required"}
	// ErrWrongAdminToken — operator token did not match
	ErrWrongAdminToken = &Error{CategoryAuth, "invalid operator token"}
	// ErrTooManyAttempts — operator lockout after repeated failures
	ErrTooManyAttempts = &Error{CategoryAuth, "too many failed attempts, wait 1 hour"}
)
