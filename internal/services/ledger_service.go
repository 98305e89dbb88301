package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/models"
)

// LedgerService owns the accounts table and the append-only transaction log.
// Balances are never stored: they are always derived from the log, so the log
// is the single source of truth and cannot drift. WalletService is the only
// writer; everything else reads balances through it.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

// AccountExists reports whether a wallet account is registered.
func (s *LedgerService) AccountExists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)
	`, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("account lookup failed: %w", err)
	}
	return exists, nil
}

// GetBalance derives the balance for one currency by summing the account's
// transaction log.
func (s *LedgerService) GetBalance(ctx context.Context, accountID string, currency models.Currency) (decimal.Decimal, error) {
	return s.balance(ctx, s.db, accountID, currency)
}

// BalanceTx derives the balance inside the caller's SQL transaction so the
// check-then-append sequence in WalletService commits atomically.
func (s *LedgerService) BalanceTx(ctx context.Context, tx *sql.Tx, accountID string, currency models.Currency) (decimal.Decimal, error) {
	return s.balance(ctx, tx, accountID, currency)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *LedgerService) balance(ctx context.Context, q queryRower, accountID string, currency models.Currency) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		FROM wallet_transactions
		WHERE account_id = $1 AND currency = $2
	`, accountID, string(currency)).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance derivation failed: %w", err)
	}
	return balance, nil
}

// AppendTransaction inserts one immutable log row inside the caller's SQL
// transaction. Rows are never updated or deleted afterwards.
func (s *LedgerService) AppendTransaction(ctx context.Context, tx *sql.Tx, wtx *models.WalletTransaction) error {
	var metadataJSON []byte
	if len(wtx.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(wtx.Metadata)
		if err != nil {
			return fmt.Errorf("metadata encoding failed: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions
		(id, account_id, currency, direction, amount, source, tournament_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`, wtx.ID, wtx.AccountID, string(wtx.Currency), string(wtx.Direction),
		wtx.Amount, wtx.Source, wtx.TournamentID, metadataJSON, wtx.CreatedAt)
	if err != nil {
		return fmt.Errorf("transaction append failed: %w", err)
	}
	return nil
}

// PrizePaid is the idempotency marker lookup: it reports whether a prize
// credit already exists for this (tournament, account) pair. A partial unique
// index on the table backs the same invariant at the database level.
func (s *LedgerService) PrizePaid(ctx context.Context, tournamentID, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM wallet_transactions
			WHERE tournament_id = $1 AND account_id = $2 AND source = $3
		)
	`, tournamentID, accountID, models.SourcePrize).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("prize marker lookup failed: %w", err)
	}
	return exists, nil
}

// History returns the account's transaction log, newest first.
func (s *LedgerService) History(ctx context.Context, accountID string, limit int) ([]models.WalletTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, currency, direction, amount, source,
		       COALESCE(tournament_id, ''), metadata, created_at
		FROM wallet_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	defer rows.Close()

	transactions := []models.WalletTransaction{}
	for rows.Next() {
		var wtx models.WalletTransaction
		var metadataJSON []byte
		err := rows.Scan(&wtx.ID, &wtx.AccountID, &wtx.Currency, &wtx.Direction,
			&wtx.Amount, &wtx.Source, &wtx.TournamentID, &metadataJSON, &wtx.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &wtx.Metadata); err != nil {
				return nil, err
			}
		}
		transactions = append(transactions, wtx)
	}

	return transactions, rows.Err()
}
