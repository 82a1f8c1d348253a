package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"blockiq/internal/service"
	"blockiq/internal/transport/rest/middleware"
)

// QuizHandler handles quiz session endpoints
type QuizHandler struct {
	quizSvc *service.QuizService
	paySvc  *service.PaymentService
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizSvc *service.QuizService, paySvc *service.PaymentService) *QuizHandler {
	return &QuizHandler{quizSvc: quizSvc, paySvc: paySvc}
}

// StartRequest is the optional body of POST /v1/quiz/sessions
type StartRequest struct {
	PlayerID string `json:"playerId,omitempty"`
}

// AnswerRequest is the body of PUT /v1/quiz/sessions/current/answer
type AnswerRequest struct {
	Option string `json:"option"`
}

// Start handles POST /v1/quiz/sessions
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PlayerID) > 128 {
		writeError(w, http.StatusBadRequest, "playerId too long")
		return
	}

	res, err := h.quizSvc.Start(r.Context(), req.PlayerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Current handles GET /v1/quiz/sessions/current
func (h *QuizHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.quizSvc.Get(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// Answer handles PUT /v1/quiz/sessions/current/answer
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.quizSvc.Answer(r.Context(), middleware.GetSessionID(r.Context()), req.Option)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// Next handles POST /v1/quiz/sessions/current/next
func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	session, err := h.quizSvc.Next(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// Submit handles POST /v1/quiz/sessions/current/submit
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, err := h.quizSvc.Submit(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// Reset handles DELETE /v1/quiz/sessions/current
func (h *QuizHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, err := h.quizSvc.Reset(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// History handles GET /v1/quiz/history
func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	playerID := middleware.GetPlayerID(r.Context())
	results, err := h.paySvc.History(r.Context(), playerID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playerId": playerID,
		"results":  results,
	})
}
