package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/config"
	"github.com/ffarena/backend/internal/models"
)

// ReferralService issues referral codes and pays the signup bonus. A code is
// applied at most once per new user: the referred_by column is set only while
// still NULL, and the bonus credits happen only when that guard fires.
type ReferralService struct {
	db     *sql.DB
	wallet *WalletService
	cfg    *config.WalletConfig
}

func NewReferralService(db *sql.DB, wallet *WalletService) *ReferralService {
	return &ReferralService{
		db:     db,
		wallet: wallet,
		cfg:    config.LoadWalletConfig(),
	}
}

// GetOrCreateCode returns the user's referral code, minting one on first use.
func (s *ReferralService) GetOrCreateCode(ctx context.Context, userID string) (string, error) {
	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT code FROM referrals WHERE user_id = $1`, userID).Scan(&code)
	if err == nil {
		return code, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("referral code lookup failed: %w", err)
	}

	// Retry on the rare code collision.
	for attempt := 0; attempt < 5; attempt++ {
		code = generateReferralCode(s.cfg.ReferralCodeLen)
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO referrals (code, user_id) VALUES ($1, $2)`, code, userID)
		if err == nil {
			log.Printf("[REFERRAL] Code %s minted for %s", code, userID)
			return code, nil
		}
	}
	return "", fmt.Errorf("referral code mint failed: %w", err)
}

// Apply records the referral and credits both sides of it. The new user gets
// the signup bonus, the code owner gets the referral bonus.
func (s *ReferralService) Apply(ctx context.Context, newUserID, code string) error {
	var referrerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM referrals WHERE code = $1`, code).Scan(&referrerID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("referral code lookup failed: %w", err)
	}
	if referrerID == newUserID {
		return fmt.Errorf("cannot apply own referral code")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET referred_by = $2 WHERE id = $1 AND referred_by IS NULL`,
		newUserID, code)
	if err != nil {
		return fmt.Errorf("referral apply failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("referral already applied")
	}

	bonus := decimal.NewFromFloat(s.cfg.ReferralBonus)
	meta := map[string]any{"code": code, "referred_user": newUserID}

	if _, err := s.wallet.Credit(ctx, referrerID, bonus, models.CurrencyMoney,
		models.SourceReferral, "", meta); err != nil {
		log.Printf("[REFERRAL] Referrer bonus failed for %s (code %s): %v", referrerID, code, err)
	}
	if _, err := s.wallet.Credit(ctx, newUserID, bonus, models.CurrencyMoney,
		models.SourceReferralSignup, "", map[string]any{"code": code}); err != nil {
		log.Printf("[REFERRAL] Signup bonus failed for %s (code %s): %v", newUserID, code, err)
	}

	log.Printf("[REFERRAL] Code %s applied by %s", code, newUserID)
	return nil
}

// ReferredCount returns how many signups used the user's code.
func (s *ReferralService) ReferredCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users u
		JOIN referrals r ON u.referred_by = r.code
		WHERE r.user_id = $1
	`, userID).Scan(&count)
	return count, err
}

// GetReferralCode returns the caller's referral code and stats
// @Summary Get referral code
// @Description Get or mint the authenticated user's referral code
// @Tags referrals
// @Produce json
// @Success 200 {object} object{code=string,referred=int}
// @Failure 401 {object} map[string]string
// @Router /referrals [get]
func (s *ReferralService) GetReferralCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	code, err := s.GetOrCreateCode(r.Context(), userID)
	if err != nil {
		log.Printf("[REFERRAL] Code fetch failed for %s: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch referral code", http.StatusInternalServerError, nil)
		return
	}

	count, err := s.ReferredCount(r.Context(), userID)
	if err != nil {
		log.Printf("[REFERRAL] Referred count failed for %s: %v", userID, err)
		count = 0
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"code":     code,
		"referred": count,
	})
}

func generateReferralCode(n int) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	cryptorand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return "FF" + string(b)
}
