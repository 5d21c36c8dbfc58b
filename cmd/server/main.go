package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/lending-ledger/internal/accounts"
	"github.com/sheikh-saqib/lending-ledger/internal/config"
	"github.com/sheikh-saqib/lending-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/lending-ledger/internal/interfaces"
	"github.com/sheikh-saqib/lending-ledger/internal/ledger"
	"github.com/sheikh-saqib/lending-ledger/internal/models"
	"github.com/sheikh-saqib/lending-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/lending-ledger/internal/storage/postgres"

	_ "github.com/lib/pq"
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = parsed
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// writeError maps domain errors onto HTTP statuses at the one place the
// ledger meets the outside world.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateName),
		errors.Is(err, models.ErrMutationRejected),
		errors.Is(err, models.ErrConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidAccount),
		errors.Is(err, models.ErrUnbalancedTransaction):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	var store interfaces.LedgerStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		pgStore := postgres.NewPostgresLedgerStore(db)
		if err := pgStore.Migrate(context.Background()); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
		store = pgStore
		logger.Info("using postgres store")
	} else {
		store = memory.NewMemoryLedgerStore()
		logger.Info("using in-memory store")
	}

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(publisher))
		logger.Info("publishing transaction events", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	ledgerService := ledger.NewLedger(store, ledgerOpts...)
	registry := accounts.NewRegistry(store, logger)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Name string `json:"name"`
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		account, err := registry.Create(r.Context(), req.Name, models.AccountType(req.Type))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	})

	http.HandleFunc("/accounts/deactivate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			AccountID string `json:"account_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := registry.Deactivate(r.Context(), req.AccountID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	http.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Legs []ledger.Leg `json:"legs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result, err := ledgerService.Post(r.Context(), ledger.PostRequest{
			Legs:           req.Legs,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]any{
			"transaction_id": result.TransactionID,
			"replayed":       result.Replayed,
		})
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		balance, err := ledgerService.GetBalance(r.Context(), accountID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			AccountID string          `json:"account_id"`
			Balance   decimal.Decimal `json:"balance"`
		}{
			AccountID: accountID,
			Balance:   balance,
		})
	})

	http.HandleFunc("/ledgerEntries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var (
			entries []models.LedgerEntry
			err     error
		)
		if accountID := r.URL.Query().Get("account_id"); accountID != "" {
			entries, err = ledgerService.ListEntries(r.Context(), accountID)
		} else {
			entries, err = ledgerService.GetLedgerEntries(r.Context())
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	logger.Info("starting server", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
