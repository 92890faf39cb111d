// Package service implements business logic, validation, and orchestration
// between the clients (HTTP, CLI) and the repository layer. It applies the
// decisions of the matching engine and publishes change events.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/repository"
)

// Sentinel errors surfaced to clients. Handlers map them to status codes
// with errors.Is.
var (
	ErrVenueNotFound     = errors.New("venue not found")
	ErrCapacityReached   = errors.New("venue is at capacity for this gender")
	ErrNicknameTaken     = errors.New("nickname is already in use at this venue")
	ErrNoActiveCheckin   = errors.New("no active checkin for this session")
	ErrRecipientNotFound = errors.New("recipient is not checked in at this venue")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// VenueStore reads venues.
type VenueStore interface {
	ListActive(ctx context.Context) ([]model.Venue, error)
	GetByID(ctx context.Context, id int64) (*model.Venue, error)
}

// CheckinStore persists checkins.
type CheckinStore interface {
	ListActive(ctx context.Context, venueID int64) ([]model.Checkin, error)
	CountActiveByGender(ctx context.Context, venueID int64, g model.Gender) (int, error)
	Create(ctx context.Context, c *model.Checkin) error
	FindActive(ctx context.Context, venueID int64, nickname string) (*model.Checkin, error)
	Deactivate(ctx context.Context, venueID int64, nickname string) (int64, error)
	CheckoutByNickname(ctx context.Context, venueID int64, nickname string) (string, error)
}

// MessageStore persists messages.
type MessageStore interface {
	CountSent(ctx context.Context, venueID int64, from, to string) (int, error)
	Create(ctx context.Context, m *model.Message) error
	ListConversation(ctx context.Context, venueID int64, from, to string, limit int) ([]model.Message, error)
	ListInbox(ctx context.Context, venueID int64, to string, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, venueID int64, from, to string) (int64, error)
}

// SettingStore reads process-wide settings.
type SettingStore interface {
	Get(ctx context.Context) (model.AppSetting, error)
}

// Rules are the tunable limits applied by the services.
type Rules struct {
	MessageLimit    int
	DefaultCapacity int
}

// DefaultRules returns the standard limits.
func DefaultRules() Rules {
	return Rules{
		MessageLimit:    matching.MessageLimit,
		DefaultCapacity: matching.DefaultCapacity,
	}
}

func (r Rules) withDefaults() Rules {
	if r.MessageLimit <= 0 {
		r.MessageLimit = matching.MessageLimit
	}
	if r.DefaultCapacity <= 0 {
		r.DefaultCapacity = matching.DefaultCapacity
	}
	return r
}

// publish sends ev and logs, rather than returns, a failure: the change is
// already committed and pollers will pick it up.
func publish(ctx context.Context, events realtime.Publisher, ev realtime.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "service",
			"kind":      ev.Kind,
			"venue_id":  ev.VenueID,
		}).WithError(err).Warn("Failed to publish event")
	}
}

// activeCheckin returns the active checkin backing sess, or
// ErrNoActiveCheckin when there is none or it belongs to a later checkin
// under the same nickname.
func activeCheckin(ctx context.Context, checkins CheckinStore, sess model.Session) (*model.Checkin, error) {
	c, err := checkins.FindActive(ctx, sess.VenueID, sess.Nickname)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveCheckin
		}
		return nil, fmt.Errorf("find active checkin: %w", err)
	}
	if sess.CheckinID != uuid.Nil && c.ID != sess.CheckinID {
		return nil, ErrNoActiveCheckin
	}
	return c, nil
}
