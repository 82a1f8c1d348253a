package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"blockiq/internal/catalog"
	"blockiq/internal/payment"
	"blockiq/internal/quiz"
	"blockiq/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP statuses. Anything unknown is a
// 500 and its detail stays in the log.
func statusFor(err error) int {
	switch {
	case errors.Is(err, quiz.ErrInvalidOption),
		errors.Is(err, service.ErrInvalidBoard):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrInvalidState),
		errors.Is(err, service.ErrPaymentReused):
		return http.StatusConflict
	case payment.IsRejection(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrInsufficientCatalog),
		errors.Is(err, catalog.ErrInvalidCatalog):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
