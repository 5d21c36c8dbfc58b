package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/lending-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/lending-ledger/internal/models"
)

//go:embed schema.sql
var schema string

// PostgresLedgerStore is the durable LedgerStore. Immutability is not an
// application convention here: schema.sql installs triggers that make
// UPDATE and DELETE on ledger history fail inside the database itself,
// so no code path can rewrite a committed entry.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Migrate applies the embedded schema. Safe to run repeatedly.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// mapError translates driver errors into the domain taxonomy so callers
// can branch with errors.Is.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "accounts_name_key" {
				return fmt.Errorf("%w: %s", models.ErrDuplicateName, pqErr.Detail)
			}
			return fmt.Errorf("%w: %s", models.ErrMutationRejected, pqErr.Detail)
		case "23503": // foreign_key_violation, RESTRICT rules
			return fmt.Errorf("%w: %s", models.ErrMutationRejected, pqErr.Detail)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", models.ErrConcurrencyConflict, pqErr.Message)
		case "P0001": // raised by the immutability triggers
			return fmt.Errorf("%w: %s", models.ErrMutationRejected, pqErr.Message)
		}
	}
	return err
}

func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	const query = `INSERT INTO accounts (id, name, type, is_active, created_at)
	VALUES ($1,$2,$3,$4,$5)`

	_, err := p.db.ExecContext(ctx, query,
		account.ID, account.Name, string(account.Type), account.Active, account.CreatedAt)
	return mapError(err)
}

func (p *PostgresLedgerStore) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	const query = `SELECT id, name, type, is_active, created_at FROM accounts WHERE id = $1`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID,
		&account.Name,
		&account.Type,
		&account.Active,
		&account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("%w: account %s", models.ErrNotFound, accountID)
	}
	if err != nil {
		return models.Account{}, mapError(err)
	}
	return account, nil
}

func (p *PostgresLedgerStore) DeactivateAccount(ctx context.Context, accountID string) error {
	const query = `UPDATE accounts SET is_active = FALSE WHERE id = $1`

	result, err := p.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: account %s", models.ErrNotFound, accountID)
	}
	return nil
}

func (p *PostgresLedgerStore) saveTransaction(ctx context.Context, tx models.Transaction, dbTx *sql.Tx) error {
	const query = `INSERT INTO transactions (id, idempotency_key, created_at)
	VALUES ($1,$2,$3)`

	// NULL rather than empty string keeps the unique constraint off
	// keyless transactions.
	var key sql.NullString
	if tx.IdempotencyKey != "" {
		key = sql.NullString{String: tx.IdempotencyKey, Valid: true}
	}

	_, err := dbTx.ExecContext(ctx, query, tx.ID, key, tx.CreatedAt)
	return err
}

func (p *PostgresLedgerStore) saveEntry(ctx context.Context, ledgerEntry models.LedgerEntry, dbTx *sql.Tx) error {
	const query = `INSERT INTO ledger_entries (id, transaction_id, account_id, amount, direction, reference, external_ref, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	var externalRef sql.NullString
	if ledgerEntry.ExternalRef != "" {
		externalRef = sql.NullString{String: ledgerEntry.ExternalRef, Valid: true}
	}

	_, err := dbTx.ExecContext(ctx, query,
		ledgerEntry.ID,
		ledgerEntry.TransactionID,
		ledgerEntry.AccountID,
		ledgerEntry.Amount,
		string(ledgerEntry.Direction),
		ledgerEntry.Reference,
		externalRef,
		ledgerEntry.CreatedAt,
	)
	return err
}

// AppendTransaction commits the transaction row and every leg inside a
// single database transaction: all entries become visible together or
// not at all.
func (p *PostgresLedgerStore) AppendTransaction(ctx context.Context, tx models.Transaction, entries []models.LedgerEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	err = p.saveTransaction(ctx, tx, dbTx)
	if err != nil {
		return mapError(err)
	}

	for _, entry := range entries {
		err = p.saveEntry(ctx, entry, dbTx)
		if err != nil {
			return mapError(err)
		}
	}

	err = dbTx.Commit()
	return mapError(err)
}

func (p *PostgresLedgerStore) TransactionByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error) {
	const query = `SELECT id, COALESCE(idempotency_key, ''), created_at FROM transactions
	WHERE idempotency_key = $1`

	var tx models.Transaction
	err := p.db.QueryRowContext(ctx, query, key).Scan(&tx.ID, &tx.IdempotencyKey, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("%w: idempotency key %q", models.ErrNotFound, key)
	}
	if err != nil {
		return models.Transaction{}, mapError(err)
	}
	return tx, nil
}

func (p *PostgresLedgerStore) scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var externalRef sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
			&entry.AccountID,
			&entry.Amount,
			&entry.Direction,
			&entry.Reference,
			&externalRef,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entry.ExternalRef = externalRef.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *PostgresLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transaction_id, account_id, amount, direction, reference, external_ref, created_at
	FROM ledger_entries ORDER BY created_at ASC, id ASC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	return p.scanEntries(rows)
}

func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transaction_id, account_id, amount, direction, reference, external_ref, created_at
	FROM ledger_entries WHERE account_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, mapError(err)
	}
	return p.scanEntries(rows)
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
