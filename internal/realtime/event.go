// Package realtime carries change notifications between the service layer
// and connected clients. Events are hints: receivers always re-query the
// authoritative state instead of applying them incrementally.
package realtime

import (
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// Kind identifies what changed.
type Kind string

const (
	CheckinInsert Kind = "checkin.insert"
	CheckinUpdate Kind = "checkin.update"
	MessageInsert Kind = "message.insert"
)

// Event is a single change notification.
type Event struct {
	Kind     Kind           `json:"kind"`
	VenueID  int64          `json:"venue_id"`
	Nickname string         `json:"nickname"`
	Message  *model.Message `json:"message,omitempty"`
	At       time.Time      `json:"at"`
}

// CheckinTopic is the topic carrying every checkin change at a venue.
func CheckinTopic(venueID int64) string {
	return fmt.Sprintf("checkins:%d", venueID)
}

// MessageTopic is the topic carrying new messages addressed to nickname.
func MessageTopic(venueID int64, nickname string) string {
	return fmt.Sprintf("messages:%d:%s", venueID, nickname)
}

// CheckinEvent builds the event published after a checkin changes.
func CheckinEvent(kind Kind, venueID int64, nickname string) Event {
	return Event{Kind: kind, VenueID: venueID, Nickname: nickname, At: time.Now().UTC()}
}

// MessageEvent builds the event published after a message is stored.
func MessageEvent(m model.Message) Event {
	return Event{
		Kind:     MessageInsert,
		VenueID:  m.VenueID,
		Nickname: m.ToNickname,
		Message:  &m,
		At:       time.Now().UTC(),
	}
}

// Topic returns the topic an event is published on.
func (e Event) Topic() string {
	if e.Kind == MessageInsert {
		return MessageTopic(e.VenueID, e.Nickname)
	}
	return CheckinTopic(e.VenueID)
}
