// Package mocks provides testify mocks of the service layer's store and
// publisher interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
)

// VenueStore mocks service.VenueStore.
type VenueStore struct {
	mock.Mock
}

func (m *VenueStore) ListActive(ctx context.Context) ([]model.Venue, error) {
	args := m.Called(ctx)
	venues, _ := args.Get(0).([]model.Venue)
	return venues, args.Error(1)
}

func (m *VenueStore) GetByID(ctx context.Context, id int64) (*model.Venue, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.Venue)
	return v, args.Error(1)
}

// CheckinStore mocks service.CheckinStore.
type CheckinStore struct {
	mock.Mock
}

func (m *CheckinStore) ListActive(ctx context.Context, venueID int64) ([]model.Checkin, error) {
	args := m.Called(ctx, venueID)
	cs, _ := args.Get(0).([]model.Checkin)
	return cs, args.Error(1)
}

func (m *CheckinStore) CountActiveByGender(ctx context.Context, venueID int64, g model.Gender) (int, error) {
	args := m.Called(ctx, venueID, g)
	return args.Int(0), args.Error(1)
}

func (m *CheckinStore) Create(ctx context.Context, c *model.Checkin) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CheckinStore) FindActive(ctx context.Context, venueID int64, nickname string) (*model.Checkin, error) {
	args := m.Called(ctx, venueID, nickname)
	c, _ := args.Get(0).(*model.Checkin)
	return c, args.Error(1)
}

func (m *CheckinStore) Deactivate(ctx context.Context, venueID int64, nickname string) (int64, error) {
	args := m.Called(ctx, venueID, nickname)
	return int64(args.Int(0)), args.Error(1)
}

func (m *CheckinStore) CheckoutByNickname(ctx context.Context, venueID int64, nickname string) (string, error) {
	args := m.Called(ctx, venueID, nickname)
	return args.String(0), args.Error(1)
}

// MessageStore mocks service.MessageStore.
type MessageStore struct {
	mock.Mock
}

func (m *MessageStore) CountSent(ctx context.Context, venueID int64, from, to string) (int, error) {
	args := m.Called(ctx, venueID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MessageStore) Create(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageStore) ListConversation(ctx context.Context, venueID int64, from, to string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, venueID, from, to, limit)
	msgs, _ := args.Get(0).([]model.Message)
	return msgs, args.Error(1)
}

func (m *MessageStore) ListInbox(ctx context.Context, venueID int64, to string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, venueID, to, limit)
	msgs, _ := args.Get(0).([]model.Message)
	return msgs, args.Error(1)
}

func (m *MessageStore) MarkRead(ctx context.Context, venueID int64, from, to string) (int64, error) {
	args := m.Called(ctx, venueID, from, to)
	return int64(args.Int(0)), args.Error(1)
}

// SettingStore mocks service.SettingStore.
type SettingStore struct {
	mock.Mock
}

func (m *SettingStore) Get(ctx context.Context) (model.AppSetting, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(model.AppSetting)
	return s, args.Error(1)
}

// Publisher mocks realtime.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, ev realtime.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
