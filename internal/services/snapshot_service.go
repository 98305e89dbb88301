package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ffarena/backend/internal/stats"
)

// SnapshotService captures the per-player kill metric at match start and
// match end and derives each player's in-match kills from the difference.
// The external stats source is unreliable: a player whose reading cannot be
// fetched gets a zero, never an error, so one flaky profile cannot fail the
// whole match.
type SnapshotService struct {
	db    *sql.DB
	stats stats.Fetcher
}

func NewSnapshotService(db *sql.DB, fetcher stats.Fetcher) *SnapshotService {
	return &SnapshotService{db: db, stats: fetcher}
}

// TakeStart records the current metric value per player as the tournament's
// start snapshot and moves tracking idle -> live. A second start snapshot for
// the same tournament fails with ErrAlreadyStarted and leaves the first one
// untouched.
func (s *SnapshotService) TakeStart(ctx context.Context, tournamentID string, playerUIDs []string) (map[string]int, error) {
	var startJSON []byte
	var tracking string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_start, tracking_state FROM tournaments WHERE id = $1
	`, tournamentID).Scan(&startJSON, &tracking)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}
	if len(startJSON) > 0 {
		return nil, ErrAlreadyStarted
	}

	snapshot := s.capture(ctx, playerUIDs)
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	// The IS NULL guard makes a concurrent double-start lose the race instead
	// of overwriting the first snapshot.
	result, err := s.db.ExecContext(ctx, `
		UPDATE tournaments
		SET snapshot_start = $1, tracking_state = 'live', status = 'live'
		WHERE id = $2 AND snapshot_start IS NULL
	`, data, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("start snapshot write failed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrAlreadyStarted
	}

	log.Printf("[SNAPSHOT] Start snapshot taken for tournament %s (%d players)", tournamentID, len(snapshot))
	return snapshot, nil
}

// TakeEnd records end values, moves tracking live -> completed and writes the
// per-player kill deltas into the match results. The tournament status itself
// is not flipped here; that belongs to the prize distributor.
func (s *SnapshotService) TakeEnd(ctx context.Context, tournamentID string, playerUIDs []string) (map[string]int, error) {
	var startJSON []byte
	var tracking string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_start, tracking_state FROM tournaments WHERE id = $1
	`, tournamentID).Scan(&startJSON, &tracking)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}
	if tracking == "completed" {
		return nil, ErrAlreadyFinalized
	}
	if len(startJSON) == 0 {
		return nil, ErrNotStarted
	}

	var start map[string]int
	if err := json.Unmarshal(startJSON, &start); err != nil {
		return nil, fmt.Errorf("start snapshot decode failed: %w", err)
	}

	end := s.capture(ctx, playerUIDs)
	delta := ComputeDelta(start, end)

	endJSON, err := json.Marshal(end)
	if err != nil {
		return nil, err
	}

	// The tracking flip and the kill writes commit together: a failed kill
	// write leaves the tournament live so finalization can be retried.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tournaments
		SET snapshot_end = $1, tracking_state = 'completed'
		WHERE id = $2 AND tracking_state = 'live'
	`, endJSON, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("end snapshot write failed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrAlreadyFinalized
	}

	if err := s.recordKills(ctx, tx, tournamentID, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[SNAPSHOT] Match finalized for tournament %s (%d players)", tournamentID, len(delta))
	return delta, nil
}

// recordKills upserts each registered player's snapshot-derived kill count as
// a verified match result inside the finalization transaction. Rank stays
// admin-entered.
func (s *SnapshotService) recordKills(ctx context.Context, tx *sql.Tx, tournamentID string, delta map[string]int) error {
	for uid, kills := range delta {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_results
			(id, tournament_id, account_id, player_uid, player_ign, status, kills, rank, submitted_at)
			SELECT $1, r.tournament_id, r.account_id, r.player_uid, r.player_ign, 'verified', $2, 0, NOW()
			FROM registrations r
			WHERE r.tournament_id = $3 AND r.player_uid = $4
			ON CONFLICT (tournament_id, player_uid)
			DO UPDATE SET kills = EXCLUDED.kills, status = 'verified'
		`, uuid.New().String(), kills, tournamentID, uid)
		if err != nil {
			return fmt.Errorf("kill count write failed for player %s: %w", uid, err)
		}
	}
	return nil
}

// capture reads the current metric per player. Unavailable readings degrade
// to zero.
func (s *SnapshotService) capture(ctx context.Context, playerUIDs []string) map[string]int {
	snapshot := make(map[string]int, len(playerUIDs))
	for _, uid := range playerUIDs {
		kills, err := s.stats.FetchKills(ctx, uid)
		if err != nil {
			log.Printf("[SNAPSHOT] Stats unavailable for UID %s, recording 0: %v", uid, err)
			kills = 0
		}
		snapshot[uid] = kills
	}
	return snapshot
}

// ComputeDelta derives per-player match kills from start and end snapshots.
// Players missing from the end snapshot get 0; negative differences (metric
// resets, stale mirrors) clamp to 0.
func ComputeDelta(start, end map[string]int) map[string]int {
	delta := make(map[string]int, len(start))
	for player, startKills := range start {
		endKills, ok := end[player]
		if !ok || endKills < startKills {
			delta[player] = 0
			continue
		}
		delta[player] = endKills - startKills
	}
	return delta
}
