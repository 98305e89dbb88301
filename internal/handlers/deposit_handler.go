package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/services"
)

// DepositHandler exposes the QR top-up flow.
type DepositHandler struct {
	deposits *services.DepositService
}

func NewDepositHandler(deposits *services.DepositService) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

// GenerateQRRequest carries the desired top-up amount.
type GenerateQRRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// GenerateDepositQR mints a short-lived deposit QR code
// @Summary Generate deposit QR
// @Description Generate a 5-minute QR payment intent for a wallet top-up
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body GenerateQRRequest true "Deposit amount"
// @Success 200 {object} object{qrCode=string,qrImage=string}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /wallet/deposit-qr [post]
func (h *DepositHandler) GenerateDepositQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req GenerateQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	qrCode, qrImage, err := h.deposits.GenerateQRCode(r.Context(), userID, req.Amount)
	if err != nil {
		if err == services.ErrInvalidAmount {
			services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
		log.Printf("[DEPOSIT] QR generation failed for %s: %v", userID, err)
		services.SendErrorResponse(w, "Failed to generate QR code", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"qrCode":  qrCode,
		"qrImage": "data:image/png;base64," + qrImage,
	})
}

// ConfirmDepositRequest carries the scanned QR payload.
type ConfirmDepositRequest struct {
	QRCode string `json:"qrCode"`
}

// ConfirmDeposit redeems a deposit QR and credits the wallet
// @Summary Confirm deposit
// @Description Redeem a scanned QR intent; the wallet is credited once
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body ConfirmDepositRequest true "Scanned QR payload"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /wallet/deposit-qr/confirm [post]
func (h *DepositHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	var req ConfirmDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QRCode == "" {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	intent, err := h.deposits.ConfirmDeposit(r.Context(), req.QRCode)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Deposit confirmed",
		"userId":  intent.UserID,
		"amount":  intent.Amount.String(),
	})
}
