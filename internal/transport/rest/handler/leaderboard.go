package handler

import (
	"net/http"
	"strconv"

	"blockiq/internal/cache"
	"blockiq/internal/service"
	"blockiq/internal/transport/rest/middleware"
)

// LeaderboardHandler handles leaderboard and catalog stats endpoints
type LeaderboardHandler struct {
	boardSvc *service.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(boardSvc *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{boardSvc: boardSvc}
}

func boardParam(r *http.Request) string {
	if b := r.URL.Query().Get("board"); b != "" {
		return b
	}
	return cache.BoardAllTime
}

// Top handles GET /v1/leaderboard?board=alltime|daily&top=N
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	top := service.DefaultTopLimit
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = n
	}

	board := boardParam(r)
	entries, err := h.boardSvc.Top(r.Context(), board, top)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"board":   board,
		"entries": entries,
	})
}

// Me handles GET /v1/leaderboard/me
func (h *LeaderboardHandler) Me(w http.ResponseWriter, r *http.Request) {
	board := boardParam(r)
	playerID := middleware.GetPlayerID(r.Context())

	rank, err := h.boardSvc.Rank(r.Context(), board, playerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"board":    board,
		"playerId": playerID,
		"rank":     rank,
	})
}

// Categories handles GET /v1/catalog/categories
func (h *LeaderboardHandler) Categories(w http.ResponseWriter, r *http.Request) {
	summary, err := h.boardSvc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": summary,
	})
}
