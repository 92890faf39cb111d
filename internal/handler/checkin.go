package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// ListVenues handles GET /venues
// Returns the active venues, oldest first.
func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.venues.ListVenues(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list venues")
		return
	}
	writeJSON(w, http.StatusOK, venues)
}

// CheckIn handles POST /checkins
// Creates an active checkin and returns the session with its bearer token.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.CheckinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.checkins.CheckIn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "failed to check in")
		return
	}

	token, err := h.tokens.Issue(sess)
	if err != nil {
		writeServiceError(w, r, err, "failed to issue session token")
		return
	}
	writeJSON(w, http.StatusCreated, model.CheckinResponse{Token: token, Session: sess})
}

// GetSession handles GET /session
// Returns the session as stored on the server. Authenticate has already
// answered 401 if the checkin is no longer active, telling the client to
// discard its session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()))
}

// ListMatches handles GET /matches
// Returns the mutually compatible people at the caller's venue with the
// caller's remaining quota towards each.
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.checkins.Matches(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "failed to list matches")
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// Checkout handles POST /checkout
// Ends the caller's presence. Leaving before the minimum stay yields 409
// with min_stay_minutes set.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	out, err := h.checkins.Checkout(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "failed to check out")
		return
	}
	if out.Status == model.CheckoutTooEarly {
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Error:          "minimum stay not reached",
			MinStayMinutes: out.MinStayMinutes,
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

