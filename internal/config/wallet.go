package config

import (
	"os"
	"strconv"
)

// WalletConfig carries the operational limits around money movement.
type WalletConfig struct {
	MinWithdrawal   float64
	MaxWithdrawal   float64
	ReferralBonus   float64
	ReferralCodeLen int
	HistoryPageSize int
}

func LoadWalletConfig() *WalletConfig {
	return &WalletConfig{
		MinWithdrawal:    getEnvAsFloat("WALLET_MIN_WITHDRAWAL", 50),
		MaxWithdrawal:    getEnvAsFloat("WALLET_MAX_WITHDRAWAL", 25000),
		ReferralBonus:    getEnvAsFloat("WALLET_REFERRAL_BONUS", 10),
		ReferralCodeLen: getEnvAsInt("WALLET_REFERRAL_CODE_LEN", 6),
		HistoryPageSize: getEnvAsInt("WALLET_HISTORY_PAGE_SIZE", 100),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
