package interfaces

import (
	"context"

	"github.com/sheikh-saqib/lending-ledger/internal/models"
)

// LedgerStore is the storage contract for the chart of accounts and the
// entry log. There is deliberately no way to update or delete an entry or
// a transaction through this interface; AppendTransaction is the one
// write path for ledger history and it is all-or-nothing.
type LedgerStore interface {
	// CreateAccount persists a new account. Returns
	// models.ErrDuplicateName when the name is taken.
	CreateAccount(ctx context.Context, account models.Account) error

	// GetAccount returns models.ErrNotFound for an unknown id.
	GetAccount(ctx context.Context, accountID string) (models.Account, error)

	// DeactivateAccount flips active to false. The row is never removed.
	DeactivateAccount(ctx context.Context, accountID string) error

	// AppendTransaction atomically persists the transaction row and every
	// leg. If any id already exists the whole batch fails with
	// models.ErrMutationRejected and nothing is written. A serialization
	// race fails with models.ErrConcurrencyConflict, also writing nothing.
	AppendTransaction(ctx context.Context, tx models.Transaction, entries []models.LedgerEntry) error

	// TransactionByIdempotencyKey returns the committed transaction for a
	// key, or models.ErrNotFound when the key has not been seen.
	TransactionByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error)

	// GetEntriesByAccount lists an account's entries ordered by creation
	// time ascending, as a committed-read snapshot.
	GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)

	// GetLedgerEntries lists every entry across all accounts, ordered by
	// creation time ascending.
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
}
