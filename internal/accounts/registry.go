package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/lending-ledger/internal/interfaces"
	"github.com/sheikh-saqib/lending-ledger/internal/models"
)

// Registry manages the chart of accounts. Accounts are created
// administratively before any entries reference them and are never
// deleted afterwards, only deactivated.
type Registry struct {
	store interfaces.LedgerStore
	log   *zap.Logger
}

// NewRegistry creates a Registry over any LedgerStore implementation.
func NewRegistry(store interfaces.LedgerStore, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, log: log}
}

// Create registers a new active account. The name must be non-empty and
// globally unique; the type must be one of the five account classes.
func (r *Registry) Create(ctx context.Context, name string, accountType models.AccountType) (models.Account, error) {
	if name == "" {
		return models.Account{}, fmt.Errorf("%w: name is required", models.ErrInvalidAccount)
	}
	if !accountType.Valid() {
		return models.Account{}, fmt.Errorf("%w: unknown account type %q",
			models.ErrInvalidAccount, accountType)
	}

	account := models.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      accountType,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.store.CreateAccount(ctx, account); err != nil {
		return models.Account{}, err
	}

	r.log.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("name", account.Name),
		zap.String("type", string(account.Type)),
	)
	return account, nil
}

// Get looks an account up by id. Fails with models.ErrNotFound.
func (r *Registry) Get(ctx context.Context, accountID string) (models.Account, error) {
	return r.store.GetAccount(ctx, accountID)
}

// Deactivate flips the account's active flag off. Posting against the
// account is rejected from then on; its history stays queryable.
func (r *Registry) Deactivate(ctx context.Context, accountID string) error {
	if err := r.store.DeactivateAccount(ctx, accountID); err != nil {
		return err
	}
	r.log.Info("account deactivated", zap.String("account_id", accountID))
	return nil
}
