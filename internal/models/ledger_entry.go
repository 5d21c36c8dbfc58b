package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks which side of an account an entry lands on.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Valid reports whether d is DEBIT or CREDIT.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// LedgerEntry represents one immutable leg of a posted transaction.
// Amounts are always positive; the direction says whether the leg adds
// to or subtracts from the account's balance. Once committed the record
// is never updated or removed.
type LedgerEntry struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     Direction       `json:"direction"`
	Reference     string          `json:"reference"`
	ExternalRef   string          `json:"external_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the entry's contribution to its account balance:
// debit adds, credit subtracts. The same formula applies to every
// account class; callers interpret the sign by class.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == DirectionCredit {
		return e.Amount.Neg()
	}
	return e.Amount
}
