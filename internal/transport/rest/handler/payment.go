package handler

import (
	"errors"
	"net/http"

	"blockiq/internal/service"
	"blockiq/internal/transport/rest/middleware"
)

// PaymentHandler handles the result gate endpoints
type PaymentHandler struct {
	paySvc *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paySvc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paySvc: paySvc}
}

// ConfirmRequest is the body of POST /v1/quiz/sessions/current/payment
type ConfirmRequest struct {
	TxHash string `json:"txHash"`
}

// Quote handles GET /v1/payments/quote
func (h *PaymentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.paySvc.Quote())
}

// Confirm handles POST /v1/quiz/sessions/current/payment
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil || req.TxHash == "" {
		writeError(w, http.StatusBadRequest, "txHash is required")
		return
	}

	result, err := h.paySvc.Confirm(r.Context(), middleware.GetSessionID(r.Context()), req.TxHash)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Result handles GET /v1/quiz/sessions/current/result
func (h *PaymentHandler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.paySvc.Result(r.Context(), middleware.GetSessionID(r.Context()))
	if errors.Is(err, service.ErrPaymentRequired) {
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error": err.Error(),
			"quote": h.paySvc.Quote(),
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
