// Package model defines the core domain types for the venue check-in system.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Venue is a place users can check into. Clients only ever read venues.
type Venue struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Active           bool      `json:"active"`
	MaxActiveMales   *int      `json:"max_active_males,omitempty"`
	MaxActiveFemales *int      `json:"max_active_females,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// MaxActive returns the configured capacity for the given gender, if any.
func (v *Venue) MaxActive(g Gender) (int, bool) {
	var limit *int
	switch g {
	case Male:
		limit = v.MaxActiveMales
	case Female:
		limit = v.MaxActiveFemales
	}
	if limit == nil {
		return 0, false
	}
	return *limit, true
}

// Checkin is one person's presence at one venue. Checkins are deactivated
// on checkout, never deleted.
type Checkin struct {
	ID           uuid.UUID `json:"id"`
	VenueID      int64     `json:"venue_id"`
	Nickname     string    `json:"nickname"`
	Instagram    *string   `json:"instagram,omitempty"`
	Gender       Gender    `json:"gender"`
	InterestedIn Interest  `json:"interested_in"`
	Description  string    `json:"description"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is a short text sent between two nicknames at a venue.
// Only Read ever changes after creation.
type Message struct {
	ID           uuid.UUID `json:"id"`
	VenueID      int64     `json:"venue_id"`
	FromNickname string    `json:"from_nickname"`
	ToNickname   string    `json:"to_nickname"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	Read         bool      `json:"read"`
}

// AppSetting is the process-wide settings row.
type AppSetting struct {
	MinStayMinutes int `json:"min_stay_minutes"`
}

// Session is the caller's own identity, mirroring the checkin it created.
// It has no server-side identity; it is validated by looking up an active
// checkin with the same venue and nickname. When CheckinID is set, that
// checkin must also be the one the session was created for, so a nickname
// reused after checkout does not revive an old session.
type Session struct {
	CheckinID    uuid.UUID `json:"checkin_id"`
	VenueID      int64     `json:"venue_id"`
	Nickname     string    `json:"nickname"`
	Instagram    *string   `json:"instagram,omitempty"`
	Gender       Gender    `json:"gender"`
	Description  string    `json:"description"`
	InterestedIn Interest  `json:"interested_in"`
}

// SessionFromCheckin builds the session that mirrors a checkin.
func SessionFromCheckin(c Checkin) Session {
	return Session{
		CheckinID:    c.ID,
		VenueID:      c.VenueID,
		Nickname:     c.Nickname,
		Instagram:    c.Instagram,
		Gender:       c.Gender,
		Description:  c.Description,
		InterestedIn: c.InterestedIn,
	}
}

// Quota is the message allowance for one ordered (from, to) pair at a venue.
type Quota struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// Exhausted reports whether no further messages may be sent.
func (q Quota) Exhausted() bool {
	return q.Remaining <= 0
}

// Match is a mutually compatible candidate together with the caller's
// remaining quota towards them.
type Match struct {
	Checkin
	Quota Quota `json:"quota"`
}

// CheckoutStatus is the outcome token of a checkout attempt.
type CheckoutStatus string

const (
	CheckoutCompleted CheckoutStatus = "completed"
	CheckoutTooEarly  CheckoutStatus = "too_early"
)

// CheckoutOutcome summarises a checkout attempt. MinStayMinutes is only
// set when Status is CheckoutTooEarly.
type CheckoutOutcome struct {
	Status         CheckoutStatus `json:"status"`
	MinStayMinutes int            `json:"min_stay_minutes,omitempty"`
}

// CheckinRequest is the payload for checking into a venue.
type CheckinRequest struct {
	VenueID      int64  `json:"venue_id"`
	Nickname     string `json:"nickname"`
	Instagram    string `json:"instagram"`
	Gender       string `json:"gender"`
	Description  string `json:"description"`
	InterestedIn string `json:"interested_in"`
}

// CheckinResponse is returned after a successful check-in.
type CheckinResponse struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

// SendMessageRequest is the payload for sending a message.
type SendMessageRequest struct {
	ToNickname string `json:"to_nickname"`
	Text       string `json:"text"`
}

// SendMessageResponse carries the stored message and the re-derived quota.
type SendMessageResponse struct {
	Message Message `json:"message"`
	Quota   Quota   `json:"quota"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error          string `json:"error"`
	MinStayMinutes int    `json:"min_stay_minutes,omitempty"`
}
