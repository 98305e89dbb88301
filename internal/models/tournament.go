package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TournamentStatus is the public lifecycle of a tournament.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
)

// TrackingState is the snapshot-tracking lifecycle. A tournament can never be
// StatusCompleted while tracking has not reached TrackingCompleted.
type TrackingState string

const (
	TrackingIdle      TrackingState = "idle"
	TrackingLive      TrackingState = "live"
	TrackingCompleted TrackingState = "completed"
)

type Tournament struct {
	ID            string           `json:"id" db:"id"`
	Title         string           `json:"title" db:"title"`
	StartsAt      time.Time        `json:"starts_at" db:"starts_at"`
	GameMap       string           `json:"map" db:"game_map"`
	Mode          string           `json:"mode" db:"mode"`
	TeamSize      string           `json:"team_size" db:"team_size"`
	EntryFee      decimal.Decimal  `json:"entry_fee" db:"entry_fee"`
	PrizeFirst    decimal.Decimal  `json:"prize_first" db:"prize_first"`
	PrizeSecond   decimal.Decimal  `json:"prize_second" db:"prize_second"`
	PrizeThird    decimal.Decimal  `json:"prize_third" db:"prize_third"`
	PerKillBonus  decimal.Decimal  `json:"per_kill_bonus" db:"per_kill_bonus"`
	Status        TournamentStatus `json:"status" db:"status"`
	TrackingState TrackingState    `json:"tracking_state" db:"tracking_state"`
	RoomID        string           `json:"room_id,omitempty" db:"room_id"`
	RoomPass      string           `json:"room_pass,omitempty" db:"room_pass"`
	SnapshotStart map[string]int   `json:"snapshot_start,omitempty" db:"snapshot_start"`
	SnapshotEnd   map[string]int   `json:"snapshot_end,omitempty" db:"snapshot_end"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// TournamentUpdate is the explicit allowed-field set for tournament updates.
// Lifecycle fields (status, tracking state, snapshots) are deliberately absent:
// they move only through the snapshot scorer and prize distributor.
type TournamentUpdate struct {
	Title        *string          `json:"title,omitempty" validate:"omitempty,min=3,max=120"`
	StartsAt     *time.Time       `json:"starts_at,omitempty"`
	GameMap      *string          `json:"map,omitempty" validate:"omitempty,max=40"`
	Mode         *string          `json:"mode,omitempty" validate:"omitempty,max=40"`
	TeamSize     *string          `json:"team_size,omitempty" validate:"omitempty,max=20"`
	EntryFee     *decimal.Decimal `json:"entry_fee,omitempty"`
	PrizeFirst   *decimal.Decimal `json:"prize_first,omitempty"`
	PrizeSecond  *decimal.Decimal `json:"prize_second,omitempty"`
	PrizeThird   *decimal.Decimal `json:"prize_third,omitempty"`
	PerKillBonus *decimal.Decimal `json:"per_kill_bonus,omitempty"`
}

// Registration ties a wallet account and its game UID to a tournament.
type Registration struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	AccountID    string    `json:"account_id" db:"account_id"`
	PlayerUID    string    `json:"player_uid" db:"player_uid"`
	PlayerIGN    string    `json:"player_ign" db:"player_ign"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Match result verification states.
const (
	ResultPending  = "pending"
	ResultVerified = "verified"
	ResultRejected = "rejected"
)

// MatchResult is a per-player outcome for one tournament. Kills come either
// from the snapshot delta or from manual admin verification; rank is always
// admin-entered.
type MatchResult struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	AccountID    string    `json:"account_id" db:"account_id"`
	PlayerUID    string    `json:"player_uid" db:"player_uid"`
	PlayerIGN    string    `json:"player_ign" db:"player_ign"`
	Screenshot   string    `json:"screenshot,omitempty" db:"screenshot"`
	Status       string    `json:"status" db:"status"`
	Kills        int       `json:"kills" db:"kills"`
	Rank         int       `json:"rank" db:"rank"`
	SubmittedAt  time.Time `json:"submitted_at" db:"submitted_at"`
}
