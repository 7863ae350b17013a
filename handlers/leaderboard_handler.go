package handlers

import (
	"net/http"
	"strconv"

	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/services"
)

type LeaderboardHandler struct {
	leaderboard services.LeaderboardService
}

func NewLeaderboardHandler(leaderboard services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// scopeFromQuery reads the standings scope from query parameters: either
// tournament_id, or season with sport_id and gender.
func scopeFromQuery(r *http.Request) models.LeaderboardScope {
	q := r.URL.Query()
	scope := models.LeaderboardScope{Gender: q.Get("gender")}
	if sportID, err := strconv.Atoi(q.Get("sport_id")); err == nil {
		scope.SportID = sportID
	}
	if tournamentID, err := strconv.Atoi(q.Get("tournament_id")); err == nil && tournamentID > 0 {
		scope.TournamentID = &tournamentID
	}
	if season := q.Get("season"); season != "" {
		scope.Season = &season
	}
	return scope
}

func (h *LeaderboardHandler) Standings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.Standings(r.Context(), scopeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeaderboardHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.Recompute(r.Context(), scopeFromQuery(r), nil)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
