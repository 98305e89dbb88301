package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ffarena/backend/internal/models"
)

// TournamentService manages tournaments, registrations and match result
// verification. Joining is the only money-moving operation here: the entry
// fee is debited before the registration row is written, and a failed write
// refunds the fee.
type TournamentService struct {
	db        *sql.DB
	wallet    *WalletService
	validator *ValidationHelper
}

func NewTournamentService(db *sql.DB, wallet *WalletService) *TournamentService {
	return &TournamentService{
		db:        db,
		wallet:    wallet,
		validator: NewValidationHelper(),
	}
}

// Create inserts a new tournament in the upcoming state.
func (s *TournamentService) Create(ctx context.Context, t *models.Tournament) error {
	t.ID = uuid.New().String()
	t.Status = models.StatusUpcoming
	t.TrackingState = models.TrackingIdle
	t.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tournaments (id, title, starts_at, game_map, mode, team_size,
			entry_fee, prize_first, prize_second, prize_third, per_kill_bonus,
			status, tracking_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.ID, t.Title, t.StartsAt, t.GameMap, t.Mode, t.TeamSize,
		t.EntryFee, t.PrizeFirst, t.PrizeSecond, t.PrizeThird, t.PerKillBonus,
		t.Status, t.TrackingState, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("tournament insert failed: %w", err)
	}

	log.Printf("[TOURNAMENT] Created %s (%s)", t.ID, t.Title)
	return nil
}

// Get loads one tournament. Room credentials are cleared for non-participants
// by the handler, not here.
func (s *TournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	t := &models.Tournament{}
	var startJSON, endJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, starts_at, game_map, mode, team_size,
		       entry_fee, prize_first, prize_second, prize_third, per_kill_bonus,
		       status, tracking_state, COALESCE(room_id, ''), COALESCE(room_pass, ''),
		       snapshot_start, snapshot_end, created_at
		FROM tournaments WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &t.StartsAt, &t.GameMap, &t.Mode, &t.TeamSize,
		&t.EntryFee, &t.PrizeFirst, &t.PrizeSecond, &t.PrizeThird, &t.PerKillBonus,
		&t.Status, &t.TrackingState, &t.RoomID, &t.RoomPass,
		&startJSON, &endJSON, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}

	if len(startJSON) > 0 {
		json.Unmarshal(startJSON, &t.SnapshotStart)
	}
	if len(endJSON) > 0 {
		json.Unmarshal(endJSON, &t.SnapshotEnd)
	}
	return t, nil
}

// List returns tournaments, optionally filtered by status, newest start first.
func (s *TournamentService) List(ctx context.Context, status string) ([]models.Tournament, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, starts_at, game_map, mode, team_size,
		       entry_fee, prize_first, prize_second, prize_third, per_kill_bonus,
		       status, tracking_state, created_at
		FROM tournaments
		WHERE ($1 = '' OR status = $1)
		ORDER BY starts_at DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("tournament list query failed: %w", err)
	}
	defer rows.Close()

	tournaments := []models.Tournament{}
	for rows.Next() {
		var t models.Tournament
		err := rows.Scan(&t.ID, &t.Title, &t.StartsAt, &t.GameMap, &t.Mode, &t.TeamSize,
			&t.EntryFee, &t.PrizeFirst, &t.PrizeSecond, &t.PrizeThird, &t.PerKillBonus,
			&t.Status, &t.TrackingState, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

// Update applies the allowed-field set to a tournament. Lifecycle columns are
// not reachable from here.
func (s *TournamentService) Update(ctx context.Context, id string, upd *models.TournamentUpdate) error {
	sets := []string{}
	args := []any{id}
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.StartsAt != nil {
		add("starts_at", *upd.StartsAt)
	}
	if upd.GameMap != nil {
		add("game_map", *upd.GameMap)
	}
	if upd.Mode != nil {
		add("mode", *upd.Mode)
	}
	if upd.TeamSize != nil {
		add("team_size", *upd.TeamSize)
	}
	if upd.EntryFee != nil {
		add("entry_fee", *upd.EntryFee)
	}
	if upd.PrizeFirst != nil {
		add("prize_first", *upd.PrizeFirst)
	}
	if upd.PrizeSecond != nil {
		add("prize_second", *upd.PrizeSecond)
	}
	if upd.PrizeThird != nil {
		add("prize_third", *upd.PrizeThird)
	}
	if upd.PerKillBonus != nil {
		add("per_kill_bonus", *upd.PerKillBonus)
	}
	if len(sets) == 0 {
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE tournaments SET %s WHERE id = $1", strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("tournament update failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRoom stores the room credentials shown to registered players.
func (s *TournamentService) SetRoom(ctx context.Context, id, roomID, roomPass string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tournaments SET room_id = $2, room_pass = $3 WHERE id = $1`, id, roomID, roomPass)
	if err != nil {
		return fmt.Errorf("room update failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an upcoming tournament. Live and completed tournaments stay
// for the ledger's tournament references.
func (s *TournamentService) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tournaments WHERE id = $1 AND status = 'upcoming'`, id)
	if err != nil {
		return fmt.Errorf("tournament delete failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	log.Printf("[TOURNAMENT] Deleted %s", id)
	return nil
}

// Join registers a player, debiting the entry fee first. A failed
// registration insert refunds the fee.
func (s *TournamentService) Join(ctx context.Context, tournamentID, accountID, playerUID, playerIGN string) (*models.Registration, error) {
	var status string
	var entryFee decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT status, entry_fee FROM tournaments WHERE id = $1`, tournamentID).
		Scan(&status, &entryFee)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}
	if status != string(models.StatusUpcoming) {
		return nil, ErrAlreadyStarted
	}

	registered, err := s.isRegistered(ctx, tournamentID, accountID)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrAlreadyRegistered
	}

	reg := &models.Registration{
		ID:           uuid.New().String(),
		TournamentID: tournamentID,
		AccountID:    accountID,
		PlayerUID:    playerUID,
		PlayerIGN:    playerIGN,
		CreatedAt:    time.Now().UTC(),
	}

	if entryFee.IsPositive() {
		_, err := s.wallet.Debit(ctx, accountID, entryFee, models.CurrencyMoney,
			models.SourceEntryFee, tournamentID, map[string]any{"player_uid": playerUID})
		if err != nil {
			return nil, err
		}
	}

	// ON CONFLICT backstops the pre-check: two concurrent joins both pass
	// isRegistered, but only one insert lands. The loser gets its fee back.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (id, tournament_id, account_id, player_uid, player_ign, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tournament_id, account_id) DO NOTHING
	`, reg.ID, reg.TournamentID, reg.AccountID, reg.PlayerUID, reg.PlayerIGN, reg.CreatedAt)
	if err != nil {
		s.refundEntryFee(ctx, tournamentID, accountID, entryFee, "registration failed")
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.refundEntryFee(ctx, tournamentID, accountID, entryFee, "duplicate registration")
		return nil, ErrAlreadyRegistered
	}

	log.Printf("[TOURNAMENT] %s joined %s as %s", accountID, tournamentID, playerIGN)
	return reg, nil
}

func (s *TournamentService) refundEntryFee(ctx context.Context, tournamentID, accountID string, entryFee decimal.Decimal, reason string) {
	if !entryFee.IsPositive() {
		return
	}
	log.Printf("[TOURNAMENT] Refunding entry fee for %s: %s", accountID, reason)
	if _, err := s.wallet.Credit(ctx, accountID, entryFee, models.CurrencyMoney,
		models.SourceRefund, tournamentID, map[string]any{"reason": reason}); err != nil {
		log.Printf("[TOURNAMENT] CRITICAL: entry fee refund failed for %s: %v", accountID, err)
	}
}

func (s *TournamentService) isRegistered(ctx context.Context, tournamentID, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM registrations WHERE tournament_id = $1 AND account_id = $2)`,
		tournamentID, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("registration lookup failed: %w", err)
	}
	return exists, nil
}

// Registrations lists everyone registered for a tournament.
func (s *TournamentService) Registrations(ctx context.Context, tournamentID string) ([]models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tournament_id, account_id, player_uid, player_ign, created_at
		FROM registrations WHERE tournament_id = $1 ORDER BY created_at
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("registrations query failed: %w", err)
	}
	defer rows.Close()

	regs := []models.Registration{}
	for rows.Next() {
		var r models.Registration
		if err := rows.Scan(&r.ID, &r.TournamentID, &r.AccountID, &r.PlayerUID, &r.PlayerIGN, &r.CreatedAt); err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// SubmitResult records a player's self-reported result as pending. One
// submission per player per tournament; resubmission overwrites a pending row
// but never a verified one.
func (s *TournamentService) SubmitResult(ctx context.Context, tournamentID, accountID, screenshot string) (*models.MatchResult, error) {
	var playerUID, playerIGN string
	err := s.db.QueryRowContext(ctx,
		`SELECT player_uid, player_ign FROM registrations WHERE tournament_id = $1 AND account_id = $2`,
		tournamentID, accountID).Scan(&playerUID, &playerIGN)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registration lookup failed: %w", err)
	}

	result := &models.MatchResult{
		ID:           uuid.New().String(),
		TournamentID: tournamentID,
		AccountID:    accountID,
		PlayerUID:    playerUID,
		PlayerIGN:    playerIGN,
		Screenshot:   screenshot,
		Status:       models.ResultPending,
		SubmittedAt:  time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO match_results (id, tournament_id, account_id, player_uid, player_ign, screenshot, status, kills, rank, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8)
		ON CONFLICT (tournament_id, player_uid) DO UPDATE
		SET screenshot = EXCLUDED.screenshot, submitted_at = EXCLUDED.submitted_at
		WHERE match_results.status = 'pending'
	`, result.ID, result.TournamentID, result.AccountID, result.PlayerUID,
		result.PlayerIGN, result.Screenshot, result.Status, result.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("result submission failed: %w", err)
	}

	log.Printf("[TOURNAMENT] Result submitted by %s for %s", playerIGN, tournamentID)
	return result, nil
}

// VerifyResult sets the admin-confirmed kills, rank and status for one result.
func (s *TournamentService) VerifyResult(ctx context.Context, resultID string, kills, rank int, status string) error {
	if status != models.ResultVerified && status != models.ResultRejected {
		return fmt.Errorf("invalid result status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE match_results SET kills = $2, rank = $3, status = $4 WHERE id = $1
	`, resultID, kills, rank, status)
	if err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	log.Printf("[TOURNAMENT] Result %s %s (kills=%d, rank=%d)", resultID, status, kills, rank)
	return nil
}

// Results lists all results for a tournament, best placement first.
func (s *TournamentService) Results(ctx context.Context, tournamentID string) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tournament_id, account_id, player_uid, player_ign,
		       COALESCE(screenshot, ''), status, kills, rank, submitted_at
		FROM match_results WHERE tournament_id = $1
		ORDER BY CASE WHEN rank = 0 THEN 9999 ELSE rank END, kills DESC
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("results query failed: %w", err)
	}
	defer rows.Close()

	results := []models.MatchResult{}
	for rows.Next() {
		var r models.MatchResult
		err := rows.Scan(&r.ID, &r.TournamentID, &r.AccountID, &r.PlayerUID, &r.PlayerIGN,
			&r.Screenshot, &r.Status, &r.Kills, &r.Rank, &r.SubmittedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CreateTournamentRequest is the admin payload for creating a tournament.
type CreateTournamentRequest struct {
	Title        string          `json:"title" validate:"required,min=3,max=120"`
	StartsAt     time.Time       `json:"starts_at" validate:"required"`
	GameMap      string          `json:"map" validate:"required,max=40"`
	Mode         string          `json:"mode" validate:"required,max=40"`
	TeamSize     string          `json:"team_size" validate:"required,max=20"`
	EntryFee     decimal.Decimal `json:"entry_fee"`
	PrizeFirst   decimal.Decimal `json:"prize_first"`
	PrizeSecond  decimal.Decimal `json:"prize_second"`
	PrizeThird   decimal.Decimal `json:"prize_third"`
	PerKillBonus decimal.Decimal `json:"per_kill_bonus"`
}

// CreateTournament creates a tournament
// @Summary Create tournament
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateTournamentRequest true "Tournament details"
// @Success 201 {object} models.Tournament
// @Failure 400 {object} map[string]string
// @Router /admin/tournaments [post]
func (s *TournamentService) CreateTournament(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CreateTournamentRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	t := &models.Tournament{
		Title:        req.Title,
		StartsAt:     req.StartsAt,
		GameMap:      req.GameMap,
		Mode:         req.Mode,
		TeamSize:     req.TeamSize,
		EntryFee:     req.EntryFee,
		PrizeFirst:   req.PrizeFirst,
		PrizeSecond:  req.PrizeSecond,
		PrizeThird:   req.PrizeThird,
		PerKillBonus: req.PerKillBonus,
	}
	if err := s.Create(r.Context(), t); err != nil {
		SendErrorResponse(w, "Failed to create tournament", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

// ListTournaments lists tournaments
// @Summary List tournaments
// @Tags tournaments
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} models.Tournament
// @Router /tournaments [get]
func (s *TournamentService) ListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := s.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("[TOURNAMENT] List failed: %v", err)
		SendErrorResponse(w, "Failed to fetch tournaments", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tournaments)
}

// GetTournament returns one tournament. Room credentials are only included
// for registered players.
// @Summary Get tournament
// @Tags tournaments
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id} [get]
func (s *TournamentService) GetTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.Get(r.Context(), id)
	if err != nil {
		writeTournamentError(w, err)
		return
	}

	accountID, _ := r.Context().Value("userID").(string)
	registered := false
	if accountID != "" {
		registered, _ = s.isRegistered(r.Context(), id, accountID)
	}
	if !registered {
		t.RoomID = ""
		t.RoomPass = ""
	}
	// Raw kill snapshots are operator detail.
	t.SnapshotStart = nil
	t.SnapshotEnd = nil

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// UpdateTournament applies an allowed-field update
// @Summary Update tournament
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param request body models.TournamentUpdate true "Fields to update"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string
// @Router /admin/tournaments/{id} [put]
func (s *TournamentService) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var upd models.TournamentUpdate
	if err := dec.Decode(&upd); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&upd); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := s.Update(r.Context(), id, &upd); err != nil {
		writeTournamentError(w, err)
		return
	}

	t, err := s.Get(r.Context(), id)
	if err != nil {
		writeTournamentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// SetRoomRequest carries the custom room credentials.
type SetRoomRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=40"`
	RoomPass string `json:"roomPass" validate:"required,max=40"`
}

// SetRoomDetails stores room credentials for registered players
// @Summary Set room details
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param request body SetRoomRequest true "Room credentials"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/tournaments/{id}/room [put]
func (s *TournamentService) SetRoomDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := s.SetRoom(r.Context(), id, req.RoomID, req.RoomPass); err != nil {
		writeTournamentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Room details updated"})
}

// DeleteTournament removes an upcoming tournament
// @Summary Delete tournament
// @Tags admin
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/tournaments/{id} [delete]
func (s *TournamentService) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Delete(r.Context(), id); err != nil {
		writeTournamentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Tournament deleted"})
}

// JoinRequest carries the player's in-game identity.
type JoinRequest struct {
	PlayerUID string `json:"playerUid" validate:"required,numeric,min=6,max=12"`
	PlayerIGN string `json:"playerIgn" validate:"required,min=2,max=30"`
}

// JoinTournament registers the caller, debiting the entry fee
// @Summary Join tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param request body JoinRequest true "Player identity"
// @Success 201 {object} models.Registration
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tournaments/{id}/join [post]
func (s *TournamentService) JoinTournament(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id := chi.URLParam(r, "id")

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reg, err := s.Join(r.Context(), id, accountID, req.PlayerUID, req.PlayerIGN)
	if err != nil {
		writeTournamentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(reg)
}

// ListRegistrations lists a tournament's registrations
// @Summary List registrations
// @Tags admin
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {array} models.Registration
// @Router /admin/tournaments/{id}/registrations [get]
func (s *TournamentService) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	regs, err := s.Registrations(r.Context(), id)
	if err != nil {
		log.Printf("[TOURNAMENT] Registrations fetch failed for %s: %v", id, err)
		SendErrorResponse(w, "Failed to fetch registrations", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(regs)
}

// SubmitResultRequest carries a player's self-reported proof.
type SubmitResultRequest struct {
	Screenshot string `json:"screenshot" validate:"required,max=500"`
}

// SubmitMatchResult records a pending result for the caller
// @Summary Submit match result
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param request body SubmitResultRequest true "Result proof"
// @Success 201 {object} models.MatchResult
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id}/results [post]
func (s *TournamentService) SubmitMatchResult(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value("userID").(string)
	if !ok || accountID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id := chi.URLParam(r, "id")

	var req SubmitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := s.SubmitResult(r.Context(), id, accountID, req.Screenshot)
	if err != nil {
		writeTournamentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// VerifyResultRequest is the admin confirmation of one result.
type VerifyResultRequest struct {
	Kills  int    `json:"kills" validate:"min=0,max=99"`
	Rank   int    `json:"rank" validate:"min=0,max=999"`
	Status string `json:"status" validate:"required,oneof=verified rejected"`
}

// VerifyMatchResult confirms or rejects a submitted result
// @Summary Verify match result
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param request body VerifyResultRequest true "Verification"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/results/{id} [put]
func (s *TournamentService) VerifyMatchResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req VerifyResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := s.VerifyResult(r.Context(), id, req.Kills, req.Rank, req.Status); err != nil {
		writeTournamentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Result " + req.Status})
}

// ListMatchResults lists all results for a tournament
// @Summary List match results
// @Tags tournaments
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {array} models.MatchResult
// @Router /tournaments/{id}/results [get]
func (s *TournamentService) ListMatchResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	results, err := s.Results(r.Context(), id)
	if err != nil {
		log.Printf("[TOURNAMENT] Results fetch failed for %s: %v", id, err)
		SendErrorResponse(w, "Failed to fetch results", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func writeTournamentError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
	case ErrAlreadyStarted:
		SendErrorResponse(w, "Tournament is no longer open for registration", http.StatusConflict, nil)
	case ErrAlreadyRegistered:
		SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	case ErrInsufficientFunds, ErrInvalidAmount:
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		SendErrorResponse(w, "Failed to process tournament operation", http.StatusInternalServerError, nil)
	}
}
