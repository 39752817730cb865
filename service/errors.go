package service

import (
	"errors"
	"fmt"
)

// Business errors surfaced to callers. None of these are retried
// automatically except ErrVersionConflict, which the ledger retries
// internally before giving up.
var (
	// ErrInvalidAmount indicates a caller passed a non-positive magnitude.
	// The ledger service is the sole sign authority: callers always pass
	// positive magnitudes and the service applies the sign from the type.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidTrigger indicates a malformed or empty trigger/channel
	ErrInvalidTrigger = errors.New("invalid trigger or channel")

	// ErrInsufficientFunds indicates a spend exceeding the available balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletFrozen indicates the wallet does not accept mutations
	ErrWalletFrozen = errors.New("wallet is frozen")

	// ErrUserNotFound indicates the referenced user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateIdempotencyKey is returned by the transaction repository
	// when the unique index rejects an insert. The ledger treats it as the
	// expected duplicate outcome, never as a failure.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrVersionConflict indicates the wallet row changed underneath an
	// optimistic update. Transient; retried with bounded backoff.
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrWithdrawalNotPending indicates a terminal transition was attempted
	// on a request that already left the pending state
	ErrWithdrawalNotPending = errors.New("withdrawal request is not pending")

	// ErrCircuitOpen indicates the circuit breaker is rejecting calls
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ValidationError carries field-level detail for malformed input
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
}
