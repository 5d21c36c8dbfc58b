package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/lending-ledger/internal/models"
)

func testAccount(id, name string) models.Account {
	return models.Account{
		ID:        id,
		Name:      name,
		Type:      models.AccountTypeAsset,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

func testEntry(id, txID, accountID string) models.LedgerEntry {
	return models.LedgerEntry{
		ID:            id,
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        decimal.RequireFromString("10.00"),
		Direction:     models.DirectionDebit,
		Reference:     "test",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestCreateAccountDuplicateName(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))

	err := store.CreateAccount(ctx, testAccount("a2", "Cash"))
	require.ErrorIs(t, err, models.ErrDuplicateName)

	// Only the first account exists.
	_, err = store.GetAccount(ctx, "a1")
	require.NoError(t, err)
	_, err = store.GetAccount(ctx, "a2")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeactivateAccount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))
	require.NoError(t, store.DeactivateAccount(ctx, "a1"))

	account, err := store.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, account.Active)

	require.ErrorIs(t, store.DeactivateAccount(ctx, "missing"), models.ErrNotFound)
}

func TestAppendTransactionAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))

	tx1 := models.Transaction{ID: "t1", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.AppendTransaction(ctx, tx1, []models.LedgerEntry{
		testEntry("e1", "t1", "a1"),
		testEntry("e2", "t1", "a1"),
	}))

	// Batch with one fresh and one already-committed entry id: the whole
	// batch must fail and the fresh entry must not appear.
	tx2 := models.Transaction{ID: "t2", CreatedAt: time.Now().UTC()}
	err := store.AppendTransaction(ctx, tx2, []models.LedgerEntry{
		testEntry("e3", "t2", "a1"),
		testEntry("e1", "t2", "a1"),
	})
	require.ErrorIs(t, err, models.ErrMutationRejected)

	entries, err := store.GetLedgerEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "t1", entry.TransactionID)
	}
}

func TestAppendTransactionDuplicateTransactionID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))

	tx := models.Transaction{ID: "t1", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.AppendTransaction(ctx, tx, []models.LedgerEntry{testEntry("e1", "t1", "a1")}))

	err := store.AppendTransaction(ctx, tx, []models.LedgerEntry{testEntry("e2", "t1", "a1")})
	require.ErrorIs(t, err, models.ErrMutationRejected)
}

func TestAppendTransactionDuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))

	first := models.Transaction{ID: "t1", IdempotencyKey: "k1", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.AppendTransaction(ctx, first, []models.LedgerEntry{testEntry("e1", "t1", "a1")}))

	second := models.Transaction{ID: "t2", IdempotencyKey: "k1", CreatedAt: time.Now().UTC()}
	err := store.AppendTransaction(ctx, second, []models.LedgerEntry{testEntry("e2", "t2", "a1")})
	require.ErrorIs(t, err, models.ErrMutationRejected)

	found, err := store.TransactionByIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "t1", found.ID)

	_, err = store.TransactionByIdempotencyKey(ctx, "unseen")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetLedgerEntriesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))

	tx := models.Transaction{ID: "t1", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.AppendTransaction(ctx, tx, []models.LedgerEntry{testEntry("e1", "t1", "a1")}))

	entries, err := store.GetLedgerEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Mutating the returned slice must not touch committed history.
	entries[0].Amount = decimal.RequireFromString("999.99")
	entries[0].AccountID = "tampered"

	fresh, err := store.GetLedgerEntries(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "a1", fresh[0].AccountID)
	assert.True(t, fresh[0].Amount.Equal(decimal.RequireFromString("10.00")))
}

func TestGetEntriesByAccountFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	require.NoError(t, store.CreateAccount(ctx, testAccount("a1", "Cash")))
	require.NoError(t, store.CreateAccount(ctx, testAccount("a2", "Loan Receivable")))

	tx := models.Transaction{ID: "t1", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.AppendTransaction(ctx, tx, []models.LedgerEntry{
		testEntry("e1", "t1", "a1"),
		testEntry("e2", "t1", "a2"),
		testEntry("e3", "t1", "a1"),
	}))

	entries, err := store.GetEntriesByAccount(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "a1", entry.AccountID)
	}
}
