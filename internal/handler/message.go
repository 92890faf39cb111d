package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
)

// GetQuota handles GET /matches/{nickname}/quota
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	q, err := h.messages.Quota(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "nickname"))
	if err != nil {
		writeServiceError(w, r, err, "failed to get quota")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// SendMessage handles POST /messages
// Sends a message if the caller has quota left towards the recipient.
// Returns 429 with the current quota when it is exhausted.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	msg, q, err := h.messages.Send(r.Context(), sessionFrom(r.Context()), req.ToNickname, req.Text)
	if err != nil {
		if errors.Is(err, matching.ErrQuotaExceeded) {
			writeJSON(w, http.StatusTooManyRequests, model.SendMessageResponse{Quota: q})
			return
		}
		writeServiceError(w, r, err, "failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, model.SendMessageResponse{Message: msg, Quota: q})
}

// GetConversation handles GET /conversations/{nickname}
// Returns the latest messages from {nickname} to the caller and marks them
// read.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.Conversation(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "nickname"))
	if err != nil {
		writeServiceError(w, r, err, "failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// GetInbox handles GET /inbox
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.Inbox(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "failed to load inbox")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Stream handles GET /ws?token=
// Browsers cannot set headers on websocket requests, so the token travels
// in the query string.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.authorize(r, r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, err, "failed to verify session")
		return
	}

	sub, err := h.events.Subscribe(r.Context(),
		realtime.CheckinTopic(sess.VenueID),
		realtime.MessageTopic(sess.VenueID, sess.Nickname),
	)
	if err != nil {
		writeServiceError(w, r, err, "failed to subscribe")
		return
	}

	log := logFor(r).WithFields(logrus.Fields{"venue_id": sess.VenueID, "nickname": sess.Nickname})
	// The stream ends once this checkin is checked out.
	checkedOut := func(ev realtime.Event) bool {
		return ev.Kind == realtime.CheckinUpdate && ev.Nickname == sess.Nickname
	}
	if err := realtime.ServeWS(w, r, sub, log, checkedOut); err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
	}
}
