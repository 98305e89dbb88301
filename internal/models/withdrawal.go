package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal request states.
const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// WithdrawalRequest holds a payout request. The requested amount is debited
// from the wallet the moment the request is created (withdrawal_hold) and is
// refunded exactly once if the request is rejected.
type WithdrawalRequest struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"account_id" db:"account_id"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	PaymentMethod  string          `json:"payment_method" db:"payment_method"`
	PaymentDetails string          `json:"payment_details" db:"payment_details"`
	Status         string          `json:"status" db:"status"`
	Reason         string          `json:"reason,omitempty" db:"reason"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}
