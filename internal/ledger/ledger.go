package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/lending-ledger/internal/interfaces"
	"github.com/sheikh-saqib/lending-ledger/internal/models"
	"github.com/sheikh-saqib/lending-ledger/internal/models/events"
)

// topicTransactionPosted is where committed postings are announced.
const topicTransactionPosted = "transaction_posted"

// maxCommitRetries bounds transparent retries of a commit that lost a
// serialization race. Nothing is committed by a failed attempt, so the
// retry is safe.
const maxCommitRetries = 3

// Leg is one side of a posting intent: which account, how much, and in
// which direction, plus audit text and an opaque external reference
// (e.g. a loan id).
type Leg struct {
	AccountID   string           `json:"account_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Direction   models.Direction `json:"direction"`
	Reference   string           `json:"reference"`
	ExternalRef string           `json:"external_ref,omitempty"`
}

// PostRequest is a balanced set of legs submitted together. The optional
// idempotency key makes retried submissions safe: a key seen before
// returns the original transaction without writing anything.
type PostRequest struct {
	Legs           []Leg
	IdempotencyKey string
}

// PostResult reports the committed transaction id. Replayed is true when
// the idempotency key matched an earlier commit and no new entries were
// written.
type PostResult struct {
	TransactionID string
	Replayed      bool
}

// Ledger validates and atomically commits balanced transactions, and
// derives balances by replaying the entry log. Balances are never
// stored; the log is the single source of truth.
type Ledger struct {
	store interfaces.LedgerStore
	pub   interfaces.EventPublisher
	log   *zap.Logger
	muMap map[string]*sync.Mutex // per-account posting locks
	mapMu sync.Mutex             // protects the muMap itself
}

// Option configures optional collaborators on a Ledger.
type Option func(*Ledger)

// WithPublisher emits a TransactionPosted event after each commit.
func WithPublisher(pub interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.pub = pub }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// NewLedger creates a Ledger over any LedgerStore implementation.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   zap.NewNop(),
		muMap: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) getAccountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// lockAccounts acquires the posting lock of every distinct account in
// ascending id order, so posts touching disjoint accounts run in
// parallel and overlapping posts cannot deadlock. The returned func
// releases the locks in reverse order.
func (l *Ledger) lockAccounts(accountIDs []string) func() {
	distinct := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		distinct[id] = struct{}{}
	}

	ordered := make([]string, 0, len(distinct))
	for id := range distinct {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	locks := make([]*sync.Mutex, 0, len(ordered))
	for _, id := range ordered {
		mu := l.getAccountLock(id)
		mu.Lock()
		locks = append(locks, mu)
	}

	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// Post validates the legs and commits them as one atomic transaction.
// Every validation failure happens before any write; a rejected post
// leaves the store untouched. Entries are created nowhere else.
func (l *Ledger) Post(ctx context.Context, req PostRequest) (PostResult, error) {
	if req.IdempotencyKey != "" {
		tx, err := l.store.TransactionByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return PostResult{TransactionID: tx.ID, Replayed: true}, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return PostResult{}, err
		}
	}

	if err := l.validateLegs(ctx, req.Legs); err != nil {
		return PostResult{}, err
	}

	now := time.Now().UTC()
	tx := models.Transaction{
		ID:             uuid.New().String(),
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}

	entries := make([]models.LedgerEntry, 0, len(req.Legs))
	accountIDs := make([]string, 0, len(req.Legs))
	for _, leg := range req.Legs {
		entries = append(entries, models.LedgerEntry{
			ID:            uuid.New().String(),
			TransactionID: tx.ID,
			AccountID:     leg.AccountID,
			Amount:        leg.Amount,
			Direction:     leg.Direction,
			Reference:     leg.Reference,
			ExternalRef:   leg.ExternalRef,
			CreatedAt:     now,
		})
		accountIDs = append(accountIDs, leg.AccountID)
	}

	unlock := l.lockAccounts(accountIDs)
	defer unlock()

	if err := l.commit(ctx, tx, entries); err != nil {
		// Two submissions racing on the same idempotency key: the loser
		// hits the key's uniqueness constraint. Resolve it as a replay.
		if req.IdempotencyKey != "" && errors.Is(err, models.ErrMutationRejected) {
			if prior, lookupErr := l.store.TransactionByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil {
				return PostResult{TransactionID: prior.ID, Replayed: true}, nil
			}
		}
		return PostResult{}, err
	}

	l.publishPosted(tx, entries)

	l.log.Info("transaction posted",
		zap.String("transaction_id", tx.ID),
		zap.Int("legs", len(entries)),
	)
	return PostResult{TransactionID: tx.ID}, nil
}

// validateLegs enforces every precondition of a post. It reads accounts
// but never writes.
func (l *Ledger) validateLegs(ctx context.Context, legs []Leg) error {
	if len(legs) < 2 {
		return fmt.Errorf("%w: a transaction needs at least two legs, got %d",
			models.ErrUnbalancedTransaction, len(legs))
	}

	debits := decimal.Zero
	credits := decimal.Zero

	for i, leg := range legs {
		if !leg.Direction.Valid() {
			return fmt.Errorf("%w: leg %d direction %q must be DEBIT or CREDIT",
				models.ErrInvalidAmount, i, leg.Direction)
		}
		if !leg.Amount.IsPositive() {
			return fmt.Errorf("%w: leg %d amount %s must be positive",
				models.ErrInvalidAmount, i, leg.Amount)
		}
		if !leg.Amount.Equal(leg.Amount.Round(2)) {
			return fmt.Errorf("%w: leg %d amount %s exceeds 2 decimal places",
				models.ErrInvalidAmount, i, leg.Amount)
		}

		account, err := l.store.GetAccount(ctx, leg.AccountID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: leg %d references unknown account %s",
					models.ErrInvalidAccount, i, leg.AccountID)
			}
			return err
		}
		if !account.Active {
			return fmt.Errorf("%w: leg %d references inactive account %s",
				models.ErrInvalidAccount, i, leg.AccountID)
		}

		if leg.Direction == models.DirectionDebit {
			debits = debits.Add(leg.Amount)
		} else {
			credits = credits.Add(leg.Amount)
		}
	}

	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits %s != credits %s",
			models.ErrUnbalancedTransaction, debits, credits)
	}
	return nil
}

// commit appends the transaction, retrying a bounded number of times
// when the store reports a serialization conflict. A conflicted attempt
// committed nothing, so the retry cannot double-post.
func (l *Ledger) commit(ctx context.Context, tx models.Transaction, entries []models.LedgerEntry) error {
	operation := func() error {
		err := l.store.AppendTransaction(ctx, tx, entries)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrConcurrencyConflict) {
			l.log.Warn("commit hit serialization conflict, retrying",
				zap.String("transaction_id", tx.ID))
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxCommitRetries), ctx)
	return backoff.Retry(operation, policy)
}

func (l *Ledger) publishPosted(tx models.Transaction, entries []models.LedgerEntry) {
	if l.pub == nil {
		return
	}

	event := events.TransactionPosted{
		TransactionID: tx.ID,
		Legs:          make([]events.PostedLeg, 0, len(entries)),
		OccurredAt:    tx.CreatedAt,
	}
	for _, e := range entries {
		event.Legs = append(event.Legs, events.PostedLeg{
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Direction: string(e.Direction),
		})
	}

	// Best-effort: the commit is durable regardless of publish outcome.
	if err := l.pub.Publish(topicTransactionPosted, event); err != nil {
		l.log.Warn("failed to publish transaction event",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
}

// GetBalance folds the account's full entry log: debit adds, credit
// subtracts, for every account class alike. Callers interpret the sign
// according to the class. The sum stays in fixed-point end to end.
func (l *Ledger) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	ledgerEntries, err := l.store.GetEntriesByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, ledgerEntry := range ledgerEntries {
		balance = balance.Add(ledgerEntry.Signed())
	}
	return balance, nil
}

// ListEntries returns the account's entries ordered by creation time
// ascending. Fails with models.ErrNotFound for an unknown account.
func (l *Ledger) ListEntries(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.GetEntriesByAccount(ctx, accountID)
}

// GetLedgerEntries returns the entire ledger for reporting.
func (l *Ledger) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	ledgerEntries, err := l.store.GetLedgerEntries(ctx)
	if err != nil {
		return []models.LedgerEntry{}, err
	}
	return ledgerEntries, nil
}
