package services

import "errors"

// Sentinel errors for the wallet/scoring core. Ledger and wallet operations
// are all-or-nothing: when one of these is returned, no partial write has
// happened and the caller may retry freely. The prize distributor is the one
// exception and reports partial success explicitly (see DistributionReport).
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyStarted     = errors.New("start snapshot already taken")
	ErrNotStarted         = errors.New("match tracking not started")
	ErrAlreadyFinalized   = errors.New("match tracking already completed")
	ErrNotFinalized       = errors.New("match not finalized")
	ErrAlreadyDistributed = errors.New("prizes already distributed")
	ErrAlreadyRegistered  = errors.New("already registered for tournament")
	ErrWithdrawalResolved = errors.New("withdrawal already resolved")
)
