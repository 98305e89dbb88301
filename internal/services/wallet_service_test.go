package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ffarena/backend/internal/models"
)

func expectAccountExists(mock sqlmock.Sqlmock, accountID string, exists bool) {
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM accounts WHERE id = \\$1\\)").
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectBalance(mock sqlmock.Sqlmock, accountID, currency, balance string) {
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(accountID, currency).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(balance))
}

func expectAppend(mock sqlmock.Sqlmock) {
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestWalletService_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db, nil, nil)
	ctx := context.Background()

	t.Run("successful credit appends one row", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		wtx, err := service.Credit(ctx, "acc1", decimal.NewFromInt(100), models.CurrencyMoney,
			models.SourceDemoDeposit, "", nil)
		assert.NoError(t, err)
		assert.Equal(t, "acc1", wtx.AccountID)
		assert.Equal(t, models.DirectionCredit, wtx.Direction)
		assert.NotEmpty(t, wtx.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit never runs a balance check", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		_, err := service.Credit(ctx, "acc1", decimal.NewFromInt(1), models.CurrencyAdCoin,
			models.SourceAdWatch, "", nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero amount rejected before any SQL", func(t *testing.T) {
		_, err := service.Credit(ctx, "acc1", decimal.Zero, models.CurrencyMoney,
			models.SourceDemoDeposit, "", nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		_, err := service.Credit(ctx, "acc1", decimal.NewFromInt(-5), models.CurrencyMoney,
			models.SourceDemoDeposit, "", nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown account", func(t *testing.T) {
		expectAccountExists(mock, "ghost", false)

		_, err := service.Credit(ctx, "ghost", decimal.NewFromInt(10), models.CurrencyMoney,
			models.SourceDemoDeposit, "", nil)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletService_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db, nil, nil)
	ctx := context.Background()

	t.Run("successful debit", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectBalance(mock, "acc1", "money", "50")
		expectAppend(mock)
		mock.ExpectCommit()

		wtx, err := service.Debit(ctx, "acc1", decimal.NewFromInt(20), models.CurrencyMoney,
			models.SourceEntryFee, "trn1", nil)
		assert.NoError(t, err)
		assert.Equal(t, models.DirectionDebit, wtx.Direction)
		assert.Equal(t, "trn1", wtx.TournamentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds leaves ledger unchanged", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectBalance(mock, "acc1", "money", "10")
		mock.ExpectRollback()

		_, err := service.Debit(ctx, "acc1", decimal.NewFromInt(25), models.CurrencyMoney,
			models.SourceEntryFee, "trn1", nil)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit of exact balance succeeds", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectBalance(mock, "acc1", "money", "25")
		expectAppend(mock)
		mock.ExpectCommit()

		_, err := service.Debit(ctx, "acc1", decimal.NewFromInt(25), models.CurrencyMoney,
			models.SourceWithdrawalHold, "", nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletService_ConcurrentDebits(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db, nil, nil)
	ctx := context.Background()

	// Two concurrent debits of 6 against a balance of 10: the per-account
	// mutex serializes them, so whichever runs second sees the reduced balance
	// and fails. Exactly one row is appended.
	expectAccountExists(mock, "acc1", true)
	mock.ExpectBegin()
	expectBalance(mock, "acc1", "money", "10")
	expectAppend(mock)
	mock.ExpectCommit()

	expectAccountExists(mock, "acc1", true)
	mock.ExpectBegin()
	expectBalance(mock, "acc1", "money", "4")
	mock.ExpectRollback()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Debit(ctx, "acc1", decimal.NewFromInt(6), models.CurrencyMoney,
				models.SourceEntryFee, "trn1", nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletService_DepositHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db, nil, nil)

	depositReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/wallet/deposit", strings.NewReader(body))
		return req.WithContext(context.WithValue(req.Context(), "userID", "acc1"))
	}

	t.Run("non-positive amount rejected before any SQL", func(t *testing.T) {
		rec := httptest.NewRecorder()
		service.Deposit(rec, depositReq(`{"amount": 0}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		service.Deposit(rec, depositReq(`{"amount": -5}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("valid amount credits the wallet", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		rec := httptest.NewRecorder()
		service.Deposit(rec, depositReq(`{"amount": 50}`))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
