package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ffarena/backend/internal/services"
)

// MatchHandler drives the match lifecycle: start tracking when the custom
// room goes live, finalize when it ends, then distribute prizes.
type MatchHandler struct {
	tournaments *services.TournamentService
	snapshots   *services.SnapshotService
	prizes      *services.PrizeService
}

func NewMatchHandler(tournaments *services.TournamentService, snapshots *services.SnapshotService, prizes *services.PrizeService) *MatchHandler {
	return &MatchHandler{
		tournaments: tournaments,
		snapshots:   snapshots,
		prizes:      prizes,
	}
}

// StartMatch takes the start snapshot for all registered players
// @Summary Start match tracking
// @Description Capture the start kill snapshot and move the tournament live
// @Tags admin
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} object{tournamentId=string,players=int}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/tournaments/{id}/start [post]
func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	uids, err := h.registeredUIDs(r, id)
	if err != nil {
		writeMatchError(w, err)
		return
	}

	snapshot, err := h.snapshots.TakeStart(r.Context(), id, uids)
	if err != nil {
		writeMatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tournamentId": id,
		"players":      len(snapshot),
	})
}

// FinalizeMatch takes the end snapshot and records kill deltas
// @Summary Finalize match tracking
// @Description Capture the end kill snapshot and record per-player kills
// @Tags admin
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} object{tournamentId=string,kills=map[string]int}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/tournaments/{id}/finalize [post]
func (h *MatchHandler) FinalizeMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	uids, err := h.registeredUIDs(r, id)
	if err != nil {
		writeMatchError(w, err)
		return
	}

	delta, err := h.snapshots.TakeEnd(r.Context(), id, uids)
	if err != nil {
		writeMatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tournamentId": id,
		"kills":        delta,
	})
}

// DistributePrizes pays out a finalized tournament
// @Summary Distribute prizes
// @Description Credit rank and per-kill prizes for all verified results
// @Tags admin
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} services.DistributionReport
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/tournaments/{id}/distribute [post]
func (h *MatchHandler) DistributePrizes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.prizes.Distribute(r.Context(), id)
	if err != nil {
		writeMatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (h *MatchHandler) registeredUIDs(r *http.Request, tournamentID string) ([]string, error) {
	regs, err := h.tournaments.Registrations(r.Context(), tournamentID)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(regs))
	for _, reg := range regs {
		uids = append(uids, reg.PlayerUID)
	}
	return uids, nil
}

func writeMatchError(w http.ResponseWriter, err error) {
	switch err {
	case services.ErrNotFound:
		services.SendErrorResponse(w, "Tournament not found", http.StatusNotFound, nil)
	case services.ErrAlreadyStarted, services.ErrAlreadyFinalized,
		services.ErrAlreadyDistributed, services.ErrWithdrawalResolved:
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	case services.ErrNotStarted, services.ErrNotFinalized:
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		log.Printf("[MATCH] Operation failed: %v", err)
		services.SendErrorResponse(w, "Failed to process match operation", http.StatusInternalServerError, nil)
	}
}
