package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency distinguishes the two balances tracked in the same transaction log.
type Currency string

const (
	CurrencyMoney  Currency = "money"
	CurrencyAdCoin Currency = "adcoin"
)

// Direction of a wallet transaction.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction source/reason tags.
const (
	SourceDeposit        = "deposit"
	SourceDemoDeposit    = "demo_deposit"
	SourceEntryFee       = "entry_fee"
	SourcePrize          = "prize"
	SourceReferral       = "referral"
	SourceReferralSignup = "referral_signup"
	SourceRefund         = "refund"
	SourceWithdrawalHold = "withdrawal_hold"
	SourceAdWatch        = "ad_watch"
)

// Account is a wallet account. It carries no balance column: balances are
// always derived from the transaction log.
type Account struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WalletTransaction is an immutable ledger record. Rows are inserted once and
// never updated or deleted.
type WalletTransaction struct {
	ID           string          `json:"id" db:"id"`
	AccountID    string          `json:"account_id" db:"account_id"`
	Currency     Currency        `json:"currency" db:"currency"`
	Direction    Direction       `json:"direction" db:"direction"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Source       string          `json:"source" db:"source"`
	TournamentID string          `json:"tournament_id,omitempty" db:"tournament_id"`
	Metadata     map[string]any  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Signed returns the transaction amount with direction applied.
func (t *WalletTransaction) Signed() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
