package memory

import (
	"context"
	"fmt"
	"sync"

	interfaces "github.com/sheikh-saqib/lending-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/lending-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of the LedgerStore
// interface, thread-safe for concurrent use. It enforces the same
// structural guarantees as the durable store: unique account names,
// unique entry ids, all-or-nothing appends, and no update or delete path
// for committed entries.
type MemoryLedgerStore struct {
	mu           sync.Mutex
	accounts     map[string]models.Account     // account id -> account
	accountNames map[string]string             // name -> account id (uniqueness index)
	entries      []models.LedgerEntry          // append-only, in commit order
	entryIDs     map[string]struct{}           // committed entry ids
	transactions map[string]models.Transaction // transaction id -> transaction
	idemKeys     map[string]string             // idempotency key -> transaction id
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:     make(map[string]models.Account),
		accountNames: make(map[string]string),
		entries:      make([]models.LedgerEntry, 0),
		entryIDs:     make(map[string]struct{}),
		transactions: make(map[string]models.Transaction),
		idemKeys:     make(map[string]string),
	}
}

// CreateAccount stores a new account, rejecting duplicate names and ids.
func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.accountNames[account.Name]; taken {
		return fmt.Errorf("%w: %q", models.ErrDuplicateName, account.Name)
	}
	if _, exists := m.accounts[account.ID]; exists {
		return fmt.Errorf("%w: account %s already exists", models.ErrMutationRejected, account.ID)
	}

	m.accounts[account.ID] = account
	m.accountNames[account.Name] = account.ID
	return nil
}

// GetAccount returns a copy of the account so callers cannot mutate
// internal state.
func (m *MemoryLedgerStore) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[accountID]
	if !exists {
		return models.Account{}, fmt.Errorf("%w: account %s", models.ErrNotFound, accountID)
	}
	return account, nil
}

// DeactivateAccount flips active off. Accounts are never removed; rows
// with entries stay forever.
func (m *MemoryLedgerStore) DeactivateAccount(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[accountID]
	if !exists {
		return fmt.Errorf("%w: account %s", models.ErrNotFound, accountID)
	}
	account.Active = false
	m.accounts[accountID] = account
	return nil
}

// AppendTransaction commits the transaction row and all legs under one
// lock, so readers see either the whole leg set or none of it. Every
// uniqueness check runs before the first write; a rejected batch leaves
// the store untouched.
func (m *MemoryLedgerStore) AppendTransaction(ctx context.Context, tx models.Transaction, entries []models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transactions[tx.ID]; exists {
		return fmt.Errorf("%w: transaction %s already committed", models.ErrMutationRejected, tx.ID)
	}
	if tx.IdempotencyKey != "" {
		if _, seen := m.idemKeys[tx.IdempotencyKey]; seen {
			return fmt.Errorf("%w: idempotency key %q already committed",
				models.ErrMutationRejected, tx.IdempotencyKey)
		}
	}
	for _, entry := range entries {
		if _, exists := m.entryIDs[entry.ID]; exists {
			return fmt.Errorf("%w: entry %s already committed", models.ErrMutationRejected, entry.ID)
		}
	}

	m.transactions[tx.ID] = tx
	if tx.IdempotencyKey != "" {
		m.idemKeys[tx.IdempotencyKey] = tx.ID
	}
	for _, entry := range entries {
		m.entryIDs[entry.ID] = struct{}{}
		m.entries = append(m.entries, entry)
	}
	return nil
}

// TransactionByIdempotencyKey resolves a previously committed key.
func (m *MemoryLedgerStore) TransactionByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txID, seen := m.idemKeys[key]
	if !seen {
		return models.Transaction{}, fmt.Errorf("%w: idempotency key %q", models.ErrNotFound, key)
	}
	return m.transactions[txID], nil
}

// GetEntriesByAccount returns a copy of the account's entries in commit
// order, which is creation-time ascending.
func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

// GetLedgerEntries returns a copy of all ledger entries in commit order,
// so external code can't modify internal state.
func (m *MemoryLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
