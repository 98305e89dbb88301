package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/models"
)

// Payout is one successful prize credit.
type Payout struct {
	AccountID string          `json:"account_id"`
	PlayerUID string          `json:"player_uid"`
	PlayerIGN string          `json:"player_ign"`
	Rank      int             `json:"rank"`
	Kills     int             `json:"kills"`
	Amount    decimal.Decimal `json:"amount"`
}

// SkippedPayout is a player who was deliberately not credited.
type SkippedPayout struct {
	AccountID string `json:"account_id"`
	PlayerIGN string `json:"player_ign"`
	Reason    string `json:"reason"`
}

// FailedPayout is a player whose credit failed; a retry of Distribute will
// attempt them again and skip everyone already paid.
type FailedPayout struct {
	AccountID string `json:"account_id"`
	PlayerIGN string `json:"player_ign"`
	Error     string `json:"error"`
}

// DistributionReport is the partial-success detail for one distribution run.
// Callers can tell "nothing happened, retry" from "partially happened,
// inspect before retry" without parsing error strings.
type DistributionReport struct {
	TournamentID string          `json:"tournament_id"`
	Paid         []Payout        `json:"paid"`
	Skipped      []SkippedPayout `json:"skipped"`
	Failed       []FailedPayout  `json:"failed"`
	Completed    bool            `json:"completed"`
}

// PrizeService maps verified match results to wallet credits, exactly once
// per (tournament, player). The double-payment guard is layered: the
// tournament status check rejects a rerun of a finished distribution, and the
// per-player prize marker makes a retry after partial failure skip players
// already paid.
type PrizeService struct {
	db     *sql.DB
	wallet *WalletService
}

func NewPrizeService(db *sql.DB, wallet *WalletService) *PrizeService {
	return &PrizeService{db: db, wallet: wallet}
}

// Distribute pays out prizes for a finalized tournament. The tournament is
// marked completed only when every payout credit succeeded; otherwise it
// stays distributable and the report says who was paid.
func (s *PrizeService) Distribute(ctx context.Context, tournamentID string) (*DistributionReport, error) {
	var status, tracking string
	var first, second, third, perKill decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT status, tracking_state, prize_first, prize_second, prize_third, per_kill_bonus
		FROM tournaments WHERE id = $1
	`, tournamentID).Scan(&status, &tracking, &first, &second, &third, &perKill)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}
	if status == string(models.StatusCompleted) {
		return nil, ErrAlreadyDistributed
	}
	if tracking != string(models.TrackingCompleted) {
		return nil, ErrNotFinalized
	}

	results, err := s.verifiedResults(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	report := &DistributionReport{
		TournamentID: tournamentID,
		Paid:         []Payout{},
		Skipped:      []SkippedPayout{},
		Failed:       []FailedPayout{},
	}

	for _, result := range results {
		payout := rankBonus(result.Rank, first, second, third).
			Add(perKill.Mul(decimal.NewFromInt(int64(result.Kills))))

		if !payout.IsPositive() {
			report.Skipped = append(report.Skipped, SkippedPayout{
				AccountID: result.AccountID, PlayerIGN: result.PlayerIGN, Reason: "zero payout",
			})
			continue
		}

		paid, err := s.wallet.Ledger().PrizePaid(ctx, tournamentID, result.AccountID)
		if err != nil {
			report.Failed = append(report.Failed, FailedPayout{
				AccountID: result.AccountID, PlayerIGN: result.PlayerIGN, Error: err.Error(),
			})
			continue
		}
		if paid {
			report.Skipped = append(report.Skipped, SkippedPayout{
				AccountID: result.AccountID, PlayerIGN: result.PlayerIGN, Reason: "already paid",
			})
			continue
		}

		_, err = s.wallet.Credit(ctx, result.AccountID, payout, models.CurrencyMoney,
			models.SourcePrize, tournamentID, map[string]any{
				"rank":       result.Rank,
				"kills":      result.Kills,
				"player_uid": result.PlayerUID,
			})
		if err != nil {
			log.Printf("[PRIZE] Credit failed for %s in tournament %s: %v", result.AccountID, tournamentID, err)
			report.Failed = append(report.Failed, FailedPayout{
				AccountID: result.AccountID, PlayerIGN: result.PlayerIGN, Error: err.Error(),
			})
			continue
		}

		report.Paid = append(report.Paid, Payout{
			AccountID: result.AccountID,
			PlayerUID: result.PlayerUID,
			PlayerIGN: result.PlayerIGN,
			Rank:      result.Rank,
			Kills:     result.Kills,
			Amount:    payout,
		})
	}

	if len(report.Failed) == 0 {
		_, err := s.db.ExecContext(ctx, `
			UPDATE tournaments SET status = 'completed'
			WHERE id = $1 AND tracking_state = 'completed'
		`, tournamentID)
		if err != nil {
			// Credits are already durable; the next run skips paid players and
			// retries the completion flip.
			log.Printf("[PRIZE] Failed to mark tournament %s completed: %v", tournamentID, err)
			return report, nil
		}
		report.Completed = true
		log.Printf("[PRIZE] Tournament %s distributed: %d paid, %d skipped", tournamentID, len(report.Paid), len(report.Skipped))
	} else {
		log.Printf("[PRIZE] Tournament %s partially distributed: %d paid, %d failed", tournamentID, len(report.Paid), len(report.Failed))
	}

	return report, nil
}

func (s *PrizeService) verifiedResults(ctx context.Context, tournamentID string) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, player_uid, player_ign, kills, rank
		FROM match_results
		WHERE tournament_id = $1 AND status = 'verified'
		ORDER BY rank, kills DESC
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("verified results query failed: %w", err)
	}
	defer rows.Close()

	results := []models.MatchResult{}
	for rows.Next() {
		var r models.MatchResult
		if err := rows.Scan(&r.AccountID, &r.PlayerUID, &r.PlayerIGN, &r.Kills, &r.Rank); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func rankBonus(rank int, first, second, third decimal.Decimal) decimal.Decimal {
	switch rank {
	case 1:
		return first
	case 2:
		return second
	case 3:
		return third
	default:
		return decimal.Zero
	}
}
