package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostedLeg is one leg of a committed transaction as seen by consumers.
type PostedLeg struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
}

// TransactionPosted is emitted after a balanced transaction commits.
type TransactionPosted struct {
	TransactionID string      `json:"transaction_id"`
	Legs          []PostedLeg `json:"legs"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
