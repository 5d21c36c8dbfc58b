package models

import "errors"

// Domain errors shared by the ledger service and its stores. Callers
// branch with errors.Is; stores wrap them with context via fmt.Errorf.
var (
	// ErrInvalidAmount means a leg amount is not positive or carries more
	// than two decimal places.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAccount means a referenced account is unknown or inactive.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrUnbalancedTransaction means debit and credit totals differ.
	ErrUnbalancedTransaction = errors.New("unbalanced transaction")

	// ErrDuplicateName means an account with that name already exists.
	ErrDuplicateName = errors.New("duplicate account name")

	// ErrMutationRejected means an attempt to alter or remove committed
	// ledger history, including re-using a committed entry id.
	ErrMutationRejected = errors.New("ledger records are immutable")

	// ErrNotFound means the requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict means the storage transaction lost a
	// serialization race and committed nothing; the call is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
