package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/lending-ledger/internal/models"
	"github.com/sheikh-saqib/lending-ledger/internal/storage/memory"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(memory.NewMemoryLedgerStore(), nil)

	account, err := registry.Create(ctx, "Cash", models.AccountTypeAsset)
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "Cash", account.Name)
	assert.Equal(t, models.AccountTypeAsset, account.Type)
	assert.True(t, account.Active)
	assert.False(t, account.CreatedAt.IsZero())
}

func TestCreateAccountDuplicateName(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(memory.NewMemoryLedgerStore(), nil)

	first, err := registry.Create(ctx, "Cash", models.AccountTypeAsset)
	require.NoError(t, err)

	_, err = registry.Create(ctx, "Cash", models.AccountTypeAsset)
	require.ErrorIs(t, err, models.ErrDuplicateName)

	// Only the first Cash account exists.
	found, err := registry.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestCreateAccountValidation(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(memory.NewMemoryLedgerStore(), nil)

	_, err := registry.Create(ctx, "", models.AccountTypeAsset)
	require.ErrorIs(t, err, models.ErrInvalidAccount)

	_, err = registry.Create(ctx, "Petty Cash", models.AccountType("SAVINGS"))
	require.ErrorIs(t, err, models.ErrInvalidAccount)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(memory.NewMemoryLedgerStore(), nil)

	account, err := registry.Create(ctx, "Cash", models.AccountTypeAsset)
	require.NoError(t, err)

	require.NoError(t, registry.Deactivate(ctx, account.ID))

	found, err := registry.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)

	require.ErrorIs(t, registry.Deactivate(ctx, "missing"), models.ErrNotFound)
}

func TestGetUnknownAccount(t *testing.T) {
	registry := NewRegistry(memory.NewMemoryLedgerStore(), nil)

	_, err := registry.Get(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}
