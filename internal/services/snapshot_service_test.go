package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/ffarena/backend/internal/stats"
)

type stubFetcher struct {
	kills map[string]int
}

func (f stubFetcher) FetchKills(_ context.Context, uid string) (int, error) {
	v, ok := f.kills[uid]
	if !ok {
		return 0, stats.ErrUnavailable
	}
	return v, nil
}

func TestComputeDelta(t *testing.T) {
	t.Run("normal deltas", func(t *testing.T) {
		delta := ComputeDelta(
			map[string]int{"111": 100, "222": 50},
			map[string]int{"111": 103, "222": 58},
		)
		assert.Equal(t, map[string]int{"111": 3, "222": 8}, delta)
	})

	t.Run("player missing from end snapshot gets zero", func(t *testing.T) {
		delta := ComputeDelta(
			map[string]int{"111": 100, "222": 50},
			map[string]int{"111": 103},
		)
		assert.Equal(t, map[string]int{"111": 3, "222": 0}, delta)
	})

	t.Run("negative difference clamps to zero", func(t *testing.T) {
		delta := ComputeDelta(
			map[string]int{"111": 100},
			map[string]int{"111": 90},
		)
		assert.Equal(t, map[string]int{"111": 0}, delta)
	})

	t.Run("player only in end snapshot is ignored", func(t *testing.T) {
		delta := ComputeDelta(
			map[string]int{"111": 100},
			map[string]int{"111": 105, "999": 40},
		)
		assert.Equal(t, map[string]int{"111": 5}, delta)
	})

	t.Run("empty snapshots", func(t *testing.T) {
		assert.Empty(t, ComputeDelta(map[string]int{}, map[string]int{}))
	})
}

func TestSnapshotService_TakeStart(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewSnapshotService(db, stubFetcher{kills: map[string]int{"111": 100, "222": 50}})
	ctx := context.Background()

	t.Run("captures per-player readings", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn1").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow(nil, "idle"))

		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		snapshot, err := service.TakeStart(ctx, "trn1", []string{"111", "222"})
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"111": 100, "222": 50}, snapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second start snapshot rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn1").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow([]byte(`{"111":100}`), "live"))

		_, err := service.TakeStart(ctx, "trn1", []string{"111"})
		assert.ErrorIs(t, err, ErrAlreadyStarted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent double start loses the write race", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn1").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow(nil, "idle"))

		// Another snapshot landed between read and write.
		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := service.TakeStart(ctx, "trn1", []string{"111"})
		assert.ErrorIs(t, err, ErrAlreadyStarted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown tournament", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}))

		_, err := service.TakeStart(ctx, "ghost", []string{"111"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unavailable stats degrade to zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn2").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow(nil, "idle"))

		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		snapshot, err := service.TakeStart(ctx, "trn2", []string{"111", "404"})
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"111": 100, "404": 0}, snapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSnapshotService_TakeEnd(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewSnapshotService(db, stubFetcher{kills: map[string]int{"111": 103}})
	ctx := context.Background()

	t.Run("records deltas as verified results", func(t *testing.T) {
		// recordKills iterates a map, so the insert order is not fixed.
		mock.MatchExpectationsInOrder(false)

		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn1").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow([]byte(`{"111":100,"222":50}`), "live"))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO match_results").
			WithArgs(sqlmock.AnyArg(), 3, "trn1", "111").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO match_results").
			WithArgs(sqlmock.AnyArg(), 0, "trn1", "222").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		delta, err := service.TakeEnd(ctx, "trn1", []string{"111", "222"})
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"111": 3, "222": 0}, delta)
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.MatchExpectationsInOrder(true)
	})

	t.Run("failed kill write rolls back the finalize", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn3").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow([]byte(`{"111":100}`), "live"))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn3").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO match_results").
			WithArgs(sqlmock.AnyArg(), 3, "trn3", "111").
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err := service.TakeEnd(ctx, "trn3", []string{"111"})
		assert.Error(t, err)

		// Nothing committed, so the tournament is still live and a retry
		// finalizes it cleanly.
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn3").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow([]byte(`{"111":100}`), "live"))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn3").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO match_results").
			WithArgs(sqlmock.AnyArg(), 3, "trn3", "111").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		delta, err := service.TakeEnd(ctx, "trn3", []string{"111"})
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"111": 3}, delta)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent finalize loses the write race", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn1").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow([]byte(`{"111":100}`), "live"))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tournaments").
			WithArgs(sqlmock.AnyArg(), "trn1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.TakeEnd(ctx, "trn1", []string{"111"})
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finalize before start rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn2").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow(nil, "idle"))

		_, err := service.TakeEnd(ctx, "trn2", []string{"111"})
		assert.ErrorIs(t, err, ErrNotStarted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second finalize rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT snapshot_start, tracking_state FROM tournaments").
			WithArgs("trn1").
			WillReturnRows(sqlmock.NewRows([]string{"snapshot_start", "tracking_state"}).
				AddRow([]byte(`{"111":100}`), "completed"))

		_, err := service.TakeEnd(ctx, "trn1", []string{"111"})
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
