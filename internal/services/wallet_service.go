package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/config"
	"github.com/ffarena/backend/internal/events"
	"github.com/ffarena/backend/internal/models"
)

// WalletService is the single writer for the ledger. Credit and debit are
// serialized per account: each call takes the account's mutex, derives the
// balance and appends the transaction inside one SQL transaction. Two
// concurrent debits of 6 against a balance of 10 therefore cannot both
// succeed. Cross-account operations proceed in parallel.
type WalletService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *LedgerService
	events    *events.Publisher
	validator *ValidationHelper
	cfg       *config.WalletConfig

	muMap map[string]*sync.Mutex
	mapMu sync.Mutex
}

func NewWalletService(db *sql.DB, redisClient *redis.Client, publisher *events.Publisher) *WalletService {
	return &WalletService{
		db:        db,
		redis:     redisClient,
		ledger:    NewLedgerService(db),
		events:    publisher,
		validator: NewValidationHelper(),
		cfg:       config.LoadWalletConfig(),
		muMap:     make(map[string]*sync.Mutex),
	}
}

// Ledger exposes read access to the underlying store for collaborating
// services. Writes still only happen through Credit and Debit.
func (s *WalletService) Ledger() *LedgerService {
	return s.ledger
}

func (s *WalletService) accountLock(accountID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[accountID]; !exists {
		s.muMap[accountID] = &sync.Mutex{}
	}
	return s.muMap[accountID]
}

// Credit adds funds to an account. Exactly one transaction row is appended
// per successful call; on any failure the ledger is left unchanged.
func (s *WalletService) Credit(ctx context.Context, accountID string, amount decimal.Decimal, currency models.Currency, source, tournamentID string, metadata map[string]any) (*models.WalletTransaction, error) {
	return s.apply(ctx, accountID, amount, currency, models.DirectionCredit, source, tournamentID, metadata)
}

// Debit removes funds from an account. Fails with ErrInsufficientFunds when
// the amount exceeds the derived balance; the failure path never writes.
func (s *WalletService) Debit(ctx context.Context, accountID string, amount decimal.Decimal, currency models.Currency, reason, tournamentID string, metadata map[string]any) (*models.WalletTransaction, error) {
	return s.apply(ctx, accountID, amount, currency, models.DirectionDebit, reason, tournamentID, metadata)
}

func (s *WalletService) apply(ctx context.Context, accountID string, amount decimal.Decimal, currency models.Currency, direction models.Direction, source, tournamentID string, metadata map[string]any) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	mu := s.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	exists, err := s.ledger.AccountExists(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if direction == models.DirectionDebit {
		balance, err := s.ledger.BalanceTx(ctx, tx, accountID, currency)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
	}

	wtx := &models.WalletTransaction{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Currency:     currency,
		Direction:    direction,
		Amount:       amount,
		Source:       source,
		TournamentID: tournamentID,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.ledger.AppendTransaction(ctx, tx, wtx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[WALLET] %s %s %s %s (source=%s, account=%s)",
		direction, amount.String(), currency, wtx.ID, source, accountID)

	// Post-commit side effects; failures here never undo the ledger write.
	if err := s.events.PublishTransaction(ctx, wtx); err != nil {
		log.Printf("[WALLET] Failed to publish transaction event %s: %v", wtx.ID, err)
	}
	s.queueNotification(ctx, wtx)

	return wtx, nil
}

// queueNotification pushes payout-style credits onto the Redis notification
// queue consumed by the messaging worker.
func (s *WalletService) queueNotification(ctx context.Context, wtx *models.WalletTransaction) {
	if s.redis == nil || wtx.Direction != models.DirectionCredit {
		return
	}
	switch wtx.Source {
	case models.SourcePrize, models.SourceRefund, models.SourceReferral, models.SourceReferralSignup:
	default:
		return
	}

	data, err := json.Marshal(wtx)
	if err != nil {
		return
	}
	if err := s.redis.RPush(ctx, "wallet_notifications", data).Err(); err != nil {
		log.Printf("[WALLET] Failed to queue notification for %s: %v", wtx.ID, err)
	}
}

// GetWallet returns both balances and the transaction history
// @Summary Get wallet
// @Description Get money and ad-coin balances plus transaction history for the authenticated user
// @Tags wallet
// @Produce json
// @Success 200 {object} object{balance=string,adCoinBalance=string,transactions=[]models.WalletTransaction}
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /wallet [get]
func (s *WalletService) GetWallet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	money, err := s.ledger.GetBalance(r.Context(), accountID, models.CurrencyMoney)
	if err != nil {
		log.Printf("[WALLET] Balance derivation failed for %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch wallet", http.StatusInternalServerError, nil)
		return
	}

	adCoins, err := s.ledger.GetBalance(r.Context(), accountID, models.CurrencyAdCoin)
	if err != nil {
		log.Printf("[WALLET] Ad-coin balance derivation failed for %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch wallet", http.StatusInternalServerError, nil)
		return
	}

	history, err := s.ledger.History(r.Context(), accountID, s.cfg.HistoryPageSize)
	if err != nil {
		log.Printf("[WALLET] History fetch failed for %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch wallet", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"balance":       money,
		"adCoinBalance": adCoins,
		"transactions":  history,
	})
}

// DepositRequest is a demo top-up request.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,positive_amount"`
}

// Deposit credits a demo deposit to the wallet
// @Summary Demo deposit
// @Description Credit a demo deposit to the authenticated user's wallet
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body DepositRequest true "Deposit amount"
// @Success 201 {object} models.WalletTransaction
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /wallet/deposit [post]
func (s *WalletService) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req DepositRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Deposit amount must be positive", http.StatusBadRequest, nil)
		return
	}

	wtx, err := s.Credit(r.Context(), accountID, req.Amount, models.CurrencyMoney, models.SourceDemoDeposit, "", nil)
	if err != nil {
		writeWalletError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wtx)
}

// WatchAd credits one ad-coin for a watched ad
// @Summary Watch ad
// @Description Credit one ad-coin to the authenticated user
// @Tags wallet
// @Produce json
// @Success 201 {object} models.WalletTransaction
// @Failure 401 {object} map[string]string
// @Router /wallet/watch-ad [post]
func (s *WalletService) WatchAd(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	wtx, err := s.Credit(r.Context(), accountID, decimal.NewFromInt(1), models.CurrencyAdCoin, models.SourceAdWatch, "", nil)
	if err != nil {
		writeWalletError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wtx)
}

// writeWalletError maps wallet sentinel errors to HTTP status codes.
func writeWalletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInsufficientFunds):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, ErrNotFound):
		SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
	default:
		SendErrorResponse(w, "Failed to process wallet operation", http.StatusInternalServerError, nil)
	}
}
