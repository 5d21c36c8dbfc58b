package models

import "time"

// Transaction groups the legs of one balanced posting for audit. The row
// itself carries no amounts; the legs reference it by TransactionID. Like
// entries, a transaction is insert-only and exists in storage only with
// its complete leg set.
type Transaction struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
