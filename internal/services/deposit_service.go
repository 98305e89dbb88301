package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/ffarena/backend/internal/models"
)

// DepositService issues short-lived QR payment intents for real top-ups. The
// QR payload lives only in Redis; confirming it credits the wallet and burns
// the key so a code cannot be redeemed twice.
type DepositService struct {
	db     *sql.DB
	redis  *redis.Client
	wallet *WalletService
}

func NewDepositService(db *sql.DB, redisClient *redis.Client, wallet *WalletService) *DepositService {
	return &DepositService{
		db:     db,
		redis:  redisClient,
		wallet: wallet,
	}
}

// DepositIntent is the payload encoded into a deposit QR code.
type DepositIntent struct {
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Nonce     string          `json:"nonce"`
}

// GenerateQRCode mints a deposit intent and renders it as a QR image. Returns
// the opaque code (for confirmation) and the base64 PNG.
func (s *DepositService) GenerateQRCode(ctx context.Context, userID string, amount decimal.Decimal) (string, string, error) {
	if s.redis == nil {
		return "", "", fmt.Errorf("deposit QR requires redis")
	}
	if !amount.IsPositive() {
		return "", "", ErrInvalidAmount
	}

	intent := DepositIntent{
		UserID:    userID,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
		Nonce:     s.generateNonce(),
	}

	jsonData, err := json.Marshal(intent)
	if err != nil {
		return "", "", err
	}

	qrCode := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("deposit_qr:%s", qrCode)
	if err := s.redis.Set(ctx, key, jsonData, 5*time.Minute).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(qrCode, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return qrCode, qrImage, nil
}

// ConfirmDeposit redeems a QR intent and credits the wallet. The Redis key is
// deleted before the credit, so a concurrent confirm of the same code fails.
func (s *DepositService) ConfirmDeposit(ctx context.Context, qrCode string) (*DepositIntent, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("deposit QR requires redis")
	}

	key := fmt.Sprintf("deposit_qr:%s", qrCode)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired QR code")
	}
	if err != nil {
		return nil, err
	}

	var intent DepositIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, err
	}

	deleted, err := s.redis.Del(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return nil, fmt.Errorf("QR code already redeemed")
	}

	_, err = s.wallet.Credit(ctx, intent.UserID, intent.Amount, models.CurrencyMoney,
		models.SourceDeposit, "", map[string]any{"nonce": intent.Nonce})
	if err != nil {
		return nil, err
	}

	return &intent, nil
}

func (s *DepositService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
