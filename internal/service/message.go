package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/repository"
)

const (
	// ConversationLimit is the number of messages shown when opening a
	// conversation.
	ConversationLimit = 12

	// InboxLimit is the number of messages listed in the inbox.
	InboxLimit = 10
)

// MessageService applies the per-pair message quota.
type MessageService struct {
	checkins CheckinStore
	messages MessageStore
	events   realtime.Publisher
	rules    Rules
	log      *logrus.Entry
}

// NewMessageService constructs a MessageService. events may be nil.
func NewMessageService(checkins CheckinStore, messages MessageStore, events realtime.Publisher, rules Rules) *MessageService {
	return &MessageService{
		checkins: checkins,
		messages: messages,
		events:   events,
		rules:    rules.withDefaults(),
		log:      logrus.WithField("component", "message"),
	}
}

// Quota returns the caller's current quota towards a nickname.
func (s *MessageService) Quota(ctx context.Context, sess model.Session, to string) (model.Quota, error) {
	to = matching.NormalizeNickname(to)
	if to == "" {
		return model.Quota{}, invalid("nickname", "is required")
	}
	sent, err := s.messages.CountSent(ctx, sess.VenueID, sess.Nickname, to)
	if err != nil {
		return model.Quota{}, fmt.Errorf("count sent messages: %w", err)
	}
	return matching.GetQuota(sent, s.rules.MessageLimit), nil
}

// Send stores a message from the caller to an active checkin at the same
// venue. The caller must still be checked in (ErrNoActiveCheckin). The quota is re-counted right before the write; on
// matching.ErrQuotaExceeded the returned quota is the fresh one.
func (s *MessageService) Send(ctx context.Context, sess model.Session, to, text string) (model.Message, model.Quota, error) {
	to = matching.NormalizeNickname(to)
	if to == "" {
		return model.Message{}, model.Quota{}, invalid("to_nickname", "is required")
	}
	if to == matching.NormalizeNickname(sess.Nickname) {
		return model.Message{}, model.Quota{}, invalid("to_nickname", "cannot be yourself")
	}

	if _, err := activeCheckin(ctx, s.checkins, sess); err != nil {
		return model.Message{}, model.Quota{}, err
	}
	if _, err := s.checkins.FindActive(ctx, sess.VenueID, to); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Message{}, model.Quota{}, ErrRecipientNotFound
		}
		return model.Message{}, model.Quota{}, fmt.Errorf("find recipient: %w", err)
	}

	q, err := s.Quota(ctx, sess, to)
	if err != nil {
		return model.Message{}, model.Quota{}, err
	}
	body, err := matching.TrySend(q.Remaining, text)
	if err != nil {
		return model.Message{}, q, err
	}

	msg := model.Message{
		VenueID:      sess.VenueID,
		FromNickname: sess.Nickname,
		ToNickname:   to,
		Text:         body,
	}
	if err := s.messages.Create(ctx, &msg); err != nil {
		return model.Message{}, q, fmt.Errorf("create message: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"venue_id": sess.VenueID,
		"nickname": sess.Nickname,
		"to":       to,
	}).Debug("Message sent")
	publish(ctx, s.events, realtime.MessageEvent(msg))
	return msg, matching.AfterSend(q, s.rules.MessageLimit), nil
}

// Conversation returns the latest messages from a nickname to the caller,
// newest first, and marks them read.
func (s *MessageService) Conversation(ctx context.Context, sess model.Session, with string) ([]model.Message, error) {
	with = matching.NormalizeNickname(with)
	if with == "" {
		return nil, invalid("nickname", "is required")
	}
	msgs, err := s.messages.ListConversation(ctx, sess.VenueID, with, sess.Nickname, ConversationLimit)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	if _, err := s.messages.MarkRead(ctx, sess.VenueID, with, sess.Nickname); err != nil {
		s.log.WithFields(logrus.Fields{
			"venue_id": sess.VenueID,
			"nickname": sess.Nickname,
			"from":     with,
		}).WithError(err).Warn("Failed to mark messages read")
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// Inbox returns the latest messages addressed to the caller, newest first.
func (s *MessageService) Inbox(ctx context.Context, sess model.Session) ([]model.Message, error) {
	msgs, err := s.messages.ListInbox(ctx, sess.VenueID, sess.Nickname, InboxLimit)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}
