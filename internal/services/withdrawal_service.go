package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/config"
	"github.com/ffarena/backend/internal/models"
)

// WithdrawalService manages payout requests. The requested amount is held
// (debited) the moment the request is created, so the available balance
// during a pending withdrawal already excludes it. Rejection refunds the hold
// exactly once; approval keeps it and sends the payout to settlement.
type WithdrawalService struct {
	db         *sql.DB
	wallet     *WalletService
	settlement *SettlementService
	validator  *ValidationHelper
	cfg        *config.WalletConfig
}

func NewWithdrawalService(db *sql.DB, wallet *WalletService, settlement *SettlementService) *WithdrawalService {
	return &WithdrawalService{
		db:         db,
		wallet:     wallet,
		settlement: settlement,
		validator:  NewValidationHelper(),
		cfg:        config.LoadWalletConfig(),
	}
}

// Request places a hold and records the withdrawal.
func (s *WithdrawalService) Request(ctx context.Context, accountID string, amount decimal.Decimal, method, details string) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	min := decimal.NewFromFloat(s.cfg.MinWithdrawal)
	max := decimal.NewFromFloat(s.cfg.MaxWithdrawal)
	if amount.LessThan(min) || amount.GreaterThan(max) {
		return nil, fmt.Errorf("%w: withdrawal must be between %s and %s", ErrInvalidAmount, min.String(), max.String())
	}

	wr := &models.WithdrawalRequest{
		ID:             uuid.New().String(),
		AccountID:      accountID,
		Amount:         amount,
		PaymentMethod:  method,
		PaymentDetails: details,
		Status:         models.WithdrawalPending,
		CreatedAt:      time.Now().UTC(),
	}

	hold, err := s.wallet.Debit(ctx, accountID, amount, models.CurrencyMoney,
		models.SourceWithdrawalHold, "", map[string]any{"withdrawal_id": wr.ID, "method": method})
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO withdrawals (id, account_id, amount, payment_method, payment_details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, wr.ID, wr.AccountID, wr.Amount, wr.PaymentMethod, wr.PaymentDetails, wr.Status, wr.CreatedAt)
	if err != nil {
		// The hold is already committed; release it so the failed request
		// leaves the balance untouched.
		log.Printf("[WITHDRAWAL] Request insert failed for %s, releasing hold %s: %v", accountID, hold.ID, err)
		if _, refundErr := s.wallet.Credit(ctx, accountID, amount, models.CurrencyMoney,
			models.SourceRefund, "", map[string]any{"withdrawal_id": wr.ID, "reason": "request failed"}); refundErr != nil {
			log.Printf("[WITHDRAWAL] CRITICAL: hold release failed for %s: %v", wr.ID, refundErr)
		}
		return nil, fmt.Errorf("withdrawal request failed: %w", err)
	}

	log.Printf("[WITHDRAWAL] Request %s created: %s %s via %s", wr.ID, amount.String(), accountID, method)
	return wr, nil
}

// Approve resolves a pending withdrawal and sends the payout to settlement.
// The hold is not refunded.
func (s *WithdrawalService) Approve(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	wr, payeeName, err := s.resolve(ctx, id, models.WithdrawalApproved, "")
	if err != nil {
		return nil, err
	}

	doc, err := s.settlement.CreatePacs008(wr, payeeName)
	if err != nil {
		log.Printf("[WITHDRAWAL] Settlement message build failed for %s: %v", id, err)
		return wr, nil
	}
	if err := s.settlement.SendToSettlement(doc); err != nil {
		// Approval stands; the payout message is resent by ops tooling.
		log.Printf("[WITHDRAWAL] Settlement send failed for %s: %v", id, err)
	}

	return wr, nil
}

// Reject resolves a pending withdrawal and refunds the held amount. The
// pending->rejected transition is the once-only guard for the refund.
func (s *WithdrawalService) Reject(ctx context.Context, id, reason string) (*models.WithdrawalRequest, error) {
	wr, _, err := s.resolve(ctx, id, models.WithdrawalRejected, reason)
	if err != nil {
		return nil, err
	}

	_, err = s.wallet.Credit(ctx, wr.AccountID, wr.Amount, models.CurrencyMoney,
		models.SourceRefund, "", map[string]any{"withdrawal_id": wr.ID, "reason": reason})
	if err != nil {
		log.Printf("[WITHDRAWAL] CRITICAL: refund failed for rejected withdrawal %s: %v", wr.ID, err)
		return nil, fmt.Errorf("withdrawal rejected but refund failed: %w", err)
	}

	return wr, nil
}

// resolve flips a pending withdrawal to a terminal status. The WHERE guard
// makes the transition happen at most once.
func (s *WithdrawalService) resolve(ctx context.Context, id, status, reason string) (*models.WithdrawalRequest, string, error) {
	wr := &models.WithdrawalRequest{ID: id, Status: status, Reason: reason}
	var payeeName string
	err := s.db.QueryRowContext(ctx, `
		UPDATE withdrawals w SET status = $2, reason = NULLIF($3, ''), resolved_at = NOW()
		FROM users u
		WHERE w.id = $1 AND w.status = 'pending' AND u.id = w.account_id
		RETURNING w.account_id, w.amount, w.payment_method, w.payment_details, w.created_at, u.ign
	`, id, status, reason).Scan(&wr.AccountID, &wr.Amount, &wr.PaymentMethod, &wr.PaymentDetails, &wr.CreatedAt, &payeeName)
	if err == sql.ErrNoRows {
		exists, lookupErr := s.exists(ctx, id)
		if lookupErr != nil {
			return nil, "", lookupErr
		}
		if !exists {
			return nil, "", ErrNotFound
		}
		return nil, "", ErrWithdrawalResolved
	}
	if err != nil {
		return nil, "", fmt.Errorf("withdrawal resolve failed: %w", err)
	}

	log.Printf("[WITHDRAWAL] Request %s %s", id, status)
	return wr, payeeName, nil
}

func (s *WithdrawalService) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawals WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// List returns withdrawals, optionally filtered by account and status.
func (s *WithdrawalService) List(ctx context.Context, accountID, status string) ([]models.WithdrawalRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, amount, payment_method, payment_details, status,
		       COALESCE(reason, ''), created_at, resolved_at
		FROM withdrawals
		WHERE ($1 = '' OR account_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, accountID, status)
	if err != nil {
		return nil, fmt.Errorf("withdrawal list query failed: %w", err)
	}
	defer rows.Close()

	withdrawals := []models.WithdrawalRequest{}
	for rows.Next() {
		var wr models.WithdrawalRequest
		err := rows.Scan(&wr.ID, &wr.AccountID, &wr.Amount, &wr.PaymentMethod, &wr.PaymentDetails,
			&wr.Status, &wr.Reason, &wr.CreatedAt, &wr.ResolvedAt)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, wr)
	}
	return withdrawals, rows.Err()
}

// WithdrawalRequestBody is the payload for requesting a withdrawal.
type WithdrawalRequestBody struct {
	Amount         decimal.Decimal `json:"amount" validate:"required,positive_amount"`
	PaymentMethod  string          `json:"paymentMethod" validate:"required,oneof=bkash nagad rocket bank"`
	PaymentDetails string          `json:"paymentDetails" validate:"required,max=200"`
}

// RequestWithdrawal places a withdrawal hold
// @Summary Request withdrawal
// @Description Request a payout; the amount is held immediately
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param request body WithdrawalRequestBody true "Withdrawal details"
// @Success 201 {object} models.WithdrawalRequest
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /withdrawals [post]
func (s *WithdrawalService) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req WithdrawalRequestBody
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	wr, err := s.Request(r.Context(), accountID, req.Amount, req.PaymentMethod, req.PaymentDetails)
	if err != nil {
		writeWalletError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wr)
}

// ListWithdrawals lists the caller's withdrawals
// @Summary List own withdrawals
// @Tags withdrawals
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} models.WithdrawalRequest
// @Router /withdrawals [get]
func (s *WithdrawalService) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	withdrawals, err := s.List(r.Context(), accountID, r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("[WITHDRAWAL] List failed for %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch withdrawals", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(withdrawals)
}

// ListAllWithdrawals lists every withdrawal for admins
// @Summary List all withdrawals
// @Tags admin
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} models.WithdrawalRequest
// @Router /admin/withdrawals [get]
func (s *WithdrawalService) ListAllWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := s.List(r.Context(), "", r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("[WITHDRAWAL] Admin list failed: %v", err)
		SendErrorResponse(w, "Failed to fetch withdrawals", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(withdrawals)
}

// ApproveWithdrawal approves a pending withdrawal
// @Summary Approve withdrawal
// @Tags admin
// @Produce json
// @Param id path string true "Withdrawal ID"
// @Success 200 {object} models.WithdrawalRequest
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/withdrawals/{id}/approve [put]
func (s *WithdrawalService) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	wr, err := s.Approve(r.Context(), id)
	if err != nil {
		writeWithdrawalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wr)
}

// RejectWithdrawal rejects a pending withdrawal and refunds the hold
// @Summary Reject withdrawal
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Withdrawal ID"
// @Param request body object{reason=string} true "Rejection reason"
// @Success 200 {object} models.WithdrawalRequest
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/withdrawals/{id}/reject [put]
func (s *WithdrawalService) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Reason string `json:"reason" validate:"required,max=200"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	wr, err := s.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeWithdrawalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wr)
}

func writeWithdrawalError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		SendErrorResponse(w, "Withdrawal not found", http.StatusNotFound, nil)
	case ErrWithdrawalResolved:
		SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	default:
		SendErrorResponse(w, "Failed to process withdrawal", http.StatusInternalServerError, nil)
	}
}
