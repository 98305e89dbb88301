package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ffarena/backend/internal/models"
)

func newWithdrawalFixture(t *testing.T) (*WithdrawalService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	wallet := NewWalletService(db, nil, nil)
	service := NewWithdrawalService(db, wallet, NewSettlementService())
	return service, mock, func() { db.Close() }
}

func expectResolve(mock sqlmock.Sqlmock, id, status, reason string, amount string) {
	mock.ExpectQuery("UPDATE withdrawals").
		WithArgs(id, status, reason).
		WillReturnRows(sqlmock.NewRows([]string{
			"account_id", "amount", "payment_method", "payment_details", "created_at", "ign",
		}).AddRow("acc1", amount, "bkash", "01712345678", time.Now().UTC(), "HeadHunter"))
}

func TestWithdrawalService_Request(t *testing.T) {
	service, mock, teardown := newWithdrawalFixture(t)
	defer teardown()
	ctx := context.Background()

	t.Run("holds the amount and records the request", func(t *testing.T) {
		// Debit hold
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectBalance(mock, "acc1", "money", "500")
		expectAppend(mock)
		mock.ExpectCommit()

		mock.ExpectExec("INSERT INTO withdrawals").
			WillReturnResult(sqlmock.NewResult(1, 1))

		wr, err := service.Request(ctx, "acc1", decimal.NewFromInt(100), "bkash", "01712345678")
		assert.NoError(t, err)
		assert.Equal(t, models.WithdrawalPending, wr.Status)
		assert.Equal(t, "bkash", wr.PaymentMethod)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("below minimum rejected before any SQL", func(t *testing.T) {
		_, err := service.Request(ctx, "acc1", decimal.NewFromInt(10), "bkash", "01712345678")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("above maximum rejected", func(t *testing.T) {
		_, err := service.Request(ctx, "acc1", decimal.NewFromInt(100000), "bkash", "01712345678")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("insufficient balance leaves no hold", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectBalance(mock, "acc1", "money", "40")
		mock.ExpectRollback()

		_, err := service.Request(ctx, "acc1", decimal.NewFromInt(100), "bkash", "01712345678")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed insert releases the hold", func(t *testing.T) {
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectBalance(mock, "acc1", "money", "500")
		expectAppend(mock)
		mock.ExpectCommit()

		mock.ExpectExec("INSERT INTO withdrawals").
			WillReturnError(assert.AnError)

		// Compensating refund credit
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		_, err := service.Request(ctx, "acc1", decimal.NewFromInt(100), "bkash", "01712345678")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithdrawalService_Reject(t *testing.T) {
	service, mock, teardown := newWithdrawalFixture(t)
	defer teardown()
	ctx := context.Background()

	t.Run("refunds the hold exactly once", func(t *testing.T) {
		expectResolve(mock, "wd1", models.WithdrawalRejected, "invalid account details", "100")

		// Refund credit
		expectAccountExists(mock, "acc1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		wr, err := service.Reject(ctx, "wd1", "invalid account details")
		assert.NoError(t, err)
		assert.Equal(t, models.WithdrawalRejected, wr.Status)
		assert.True(t, wr.Amount.Equal(decimal.NewFromInt(100)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second reject is a no-op conflict", func(t *testing.T) {
		mock.ExpectQuery("UPDATE withdrawals").
			WithArgs("wd1", models.WithdrawalRejected, "again").
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM withdrawals WHERE id = \\$1\\)").
			WithArgs("wd1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Reject(ctx, "wd1", "again")
		assert.ErrorIs(t, err, ErrWithdrawalResolved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown withdrawal", func(t *testing.T) {
		mock.ExpectQuery("UPDATE withdrawals").
			WithArgs("ghost", models.WithdrawalRejected, "nope").
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM withdrawals WHERE id = \\$1\\)").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := service.Reject(ctx, "ghost", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithdrawalService_Approve(t *testing.T) {
	service, mock, teardown := newWithdrawalFixture(t)
	defer teardown()
	ctx := context.Background()

	t.Run("keeps the hold and settles", func(t *testing.T) {
		expectResolve(mock, "wd1", models.WithdrawalApproved, "", "100")
		// No refund credit expectations: approval must not touch the wallet.

		wr, err := service.Approve(ctx, "wd1")
		assert.NoError(t, err)
		assert.Equal(t, models.WithdrawalApproved, wr.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("approve after resolve is a conflict", func(t *testing.T) {
		mock.ExpectQuery("UPDATE withdrawals").
			WithArgs("wd1", models.WithdrawalApproved, "").
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM withdrawals WHERE id = \\$1\\)").
			WithArgs("wd1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Approve(ctx, "wd1")
		assert.ErrorIs(t, err, ErrWithdrawalResolved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithdrawalService_List(t *testing.T) {
	service, mock, teardown := newWithdrawalFixture(t)
	defer teardown()
	ctx := context.Background()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, account_id, amount, payment_method, payment_details").
		WithArgs("acc1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "amount", "payment_method", "payment_details",
			"status", "reason", "created_at", "resolved_at",
		}).AddRow("wd1", "acc1", "100", "bkash", "01712345678", "pending", "", now, nil))

	withdrawals, err := service.List(ctx, "acc1", "pending")
	assert.NoError(t, err)
	assert.Len(t, withdrawals, 1)
	assert.Equal(t, "wd1", withdrawals[0].ID)
	assert.Nil(t, withdrawals[0].ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
