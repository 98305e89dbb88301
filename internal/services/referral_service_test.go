package services

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestReferralService_Apply(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	wallet := NewWalletService(db, nil, nil)
	service := NewReferralService(db, wallet)
	ctx := context.Background()

	t.Run("credits both sides once", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id FROM referrals WHERE code").
			WithArgs("FFX7K2P9").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("referrer1"))

		mock.ExpectExec("UPDATE users SET referred_by").
			WithArgs("newuser1", "FFX7K2P9").
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Referrer bonus credit
		expectAccountExists(mock, "referrer1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		// Signup bonus credit
		expectAccountExists(mock, "newuser1", true)
		mock.ExpectBegin()
		expectAppend(mock)
		mock.ExpectCommit()

		err := service.Apply(ctx, "newuser1", "FFX7K2P9")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second apply is rejected without credits", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id FROM referrals WHERE code").
			WithArgs("FFX7K2P9").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("referrer1"))

		// referred_by already set, guard fires
		mock.ExpectExec("UPDATE users SET referred_by").
			WithArgs("newuser1", "FFX7K2P9").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.Apply(ctx, "newuser1", "FFX7K2P9")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already applied")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown code", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id FROM referrals WHERE code").
			WithArgs("FFNOPE99").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		err := service.Apply(ctx, "newuser1", "FFNOPE99")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("own code rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id FROM referrals WHERE code").
			WithArgs("FFX7K2P9").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("newuser1"))

		err := service.Apply(ctx, "newuser1", "FFX7K2P9")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReferralService_GetOrCreateCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewReferralService(db, NewWalletService(db, nil, nil))
	ctx := context.Background()

	t.Run("existing code returned", func(t *testing.T) {
		mock.ExpectQuery("SELECT code FROM referrals WHERE user_id").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("FFABC234"))

		code, err := service.GetOrCreateCode(ctx, "user1")
		assert.NoError(t, err)
		assert.Equal(t, "FFABC234", code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("new code minted on first use", func(t *testing.T) {
		mock.ExpectQuery("SELECT code FROM referrals WHERE user_id").
			WithArgs("user2").
			WillReturnRows(sqlmock.NewRows([]string{"code"}))

		mock.ExpectExec("INSERT INTO referrals").
			WillReturnResult(sqlmock.NewResult(1, 1))

		code, err := service.GetOrCreateCode(ctx, "user2")
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "FF"))
		assert.Len(t, code, 8)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGenerateReferralCode(t *testing.T) {
	code := generateReferralCode(6)
	assert.True(t, strings.HasPrefix(code, "FF"))
	assert.Len(t, code, 8)

	// No ambiguous characters in the random part.
	for _, c := range code[2:] {
		assert.NotContains(t, "01IO", string(c))
	}
}
