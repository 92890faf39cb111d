// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/service"
)

// Handler holds all HTTP handlers for the check-in API.
type Handler struct {
	venues   *service.VenueService
	checkins *service.CheckinService
	messages *service.MessageService
	tokens   *TokenIssuer
	events   realtime.Subscriber
}

// New constructs a Handler. events may be nil, in which case /ws is not
// served.
func New(
	venues *service.VenueService,
	checkins *service.CheckinService,
	messages *service.MessageService,
	tokens *TokenIssuer,
	events realtime.Subscriber,
) *Handler {
	return &Handler{venues: venues, checkins: checkins, messages: messages, tokens: tokens, events: events}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func logFor(r *http.Request) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"component":  "http",
		"request_id": middleware.GetReqID(r.Context()),
	})
}

// writeServiceError maps service-layer errors to status codes. Unexpected
// errors are logged and reported with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, matching.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrVenueNotFound),
		errors.Is(err, service.ErrRecipientNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoActiveCheckin):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNicknameTaken),
		errors.Is(err, service.ErrCapacityReached):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, matching.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		logFor(r).WithError(err).Error(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
