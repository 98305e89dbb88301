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

func TestLedgerService_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("derived from transaction log", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(CASE WHEN direction = 'credit' THEN amount ELSE -amount END\\), 0\\)").
			WithArgs("acc1", "money").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("150.50"))

		balance, err := service.GetBalance(ctx, "acc1", models.CurrencyMoney)
		assert.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("150.50")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty log derives zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE").
			WithArgs("acc2", "money").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

		balance, err := service.GetBalance(ctx, "acc2", models.CurrencyMoney)
		assert.NoError(t, err)
		assert.True(t, balance.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("currencies are summed separately", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE").
			WithArgs("acc1", "adcoin").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("3"))

		balance, err := service.GetBalance(ctx, "acc1", models.CurrencyAdCoin)
		assert.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(3)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_AccountExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := service.AccountExists(ctx, "acc1")
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_PrizePaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	t.Run("marker present", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("trn1", "acc1", models.SourcePrize).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		paid, err := service.PrizePaid(ctx, "trn1", "acc1")
		assert.NoError(t, err)
		assert.True(t, paid)
	})

	t.Run("marker absent", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("trn1", "acc2", models.SourcePrize).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		paid, err := service.PrizePaid(ctx, "trn1", "acc2")
		assert.NoError(t, err)
		assert.False(t, paid)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_History(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)
	ctx := context.Background()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, account_id, currency, direction, amount, source").
		WithArgs("acc1", 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "currency", "direction", "amount", "source", "tournament_id", "metadata", "created_at",
		}).
			AddRow("tx2", "acc1", "money", "credit", "120", "prize", "trn1", []byte(`{"rank":1,"kills":7}`), now).
			AddRow("tx1", "acc1", "money", "debit", "20", "entry_fee", "trn1", nil, now.Add(-time.Hour)))

	history, err := service.History(ctx, "acc1", 100)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "tx2", history[0].ID)
	assert.Equal(t, models.DirectionCredit, history[0].Direction)
	assert.Equal(t, float64(1), history[0].Metadata["rank"])
	assert.Nil(t, history[1].Metadata)
	assert.True(t, history[1].Signed().Equal(decimal.NewFromInt(-20)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
