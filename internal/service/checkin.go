package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/checkedin/internal/matching"
	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
	"github.com/Shivanand-hulikatti/checkedin/internal/repository"
)

// quotaConcurrency bounds the per-candidate quota lookups of one match listing.
const quotaConcurrency = 8

// CheckinService orchestrates check-in, session restore, match listing and
// checkout.
type CheckinService struct {
	venues   VenueStore
	checkins CheckinStore
	messages MessageStore
	settings SettingStore
	events   realtime.Publisher
	rules    Rules
	log      *logrus.Entry
}

// NewCheckinService constructs a CheckinService with its dependencies.
// events may be nil, in which case no change events are published.
func NewCheckinService(
	venues VenueStore,
	checkins CheckinStore,
	messages MessageStore,
	settings SettingStore,
	events realtime.Publisher,
	rules Rules,
) *CheckinService {
	return &CheckinService{
		venues:   venues,
		checkins: checkins,
		messages: messages,
		settings: settings,
		events:   events,
		rules:    rules.withDefaults(),
		log:      logrus.WithField("component", "checkin"),
	}
}

// CheckIn validates the request, applies the venue's capacity check and
// creates an active checkin. The returned session mirrors the new checkin.
func (s *CheckinService) CheckIn(ctx context.Context, req model.CheckinRequest) (model.Session, error) {
	c, err := checkinFromRequest(req)
	if err != nil {
		return model.Session{}, err
	}

	venue, err := s.venues.GetByID(ctx, c.VenueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, ErrVenueNotFound
		}
		return model.Session{}, fmt.Errorf("get venue: %w", err)
	}
	if !venue.Active {
		return model.Session{}, ErrVenueNotFound
	}

	current, err := s.checkins.CountActiveByGender(ctx, c.VenueID, c.Gender)
	if err != nil {
		return model.Session{}, fmt.Errorf("count active checkins: %w", err)
	}
	limit := matching.CapacityLimit(venue, c.Gender, s.rules.DefaultCapacity)
	if !matching.Admit(limit, current) {
		s.log.WithFields(logrus.Fields{
			"venue_id": c.VenueID,
			"gender":   c.Gender,
			"limit":    limit,
		}).Info("Check-in rejected, venue at capacity")
		return model.Session{}, ErrCapacityReached
	}

	if err := s.checkins.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNicknameTaken) {
			return model.Session{}, ErrNicknameTaken
		}
		return model.Session{}, fmt.Errorf("create checkin: %w", err)
	}

	s.log.WithFields(logrus.Fields{"venue_id": c.VenueID, "nickname": c.Nickname}).Info("Checked in")
	publish(ctx, s.events, realtime.CheckinEvent(realtime.CheckinInsert, c.VenueID, c.Nickname))
	return model.SessionFromCheckin(*c), nil
}

func checkinFromRequest(req model.CheckinRequest) (*model.Checkin, error) {
	if req.VenueID <= 0 {
		return nil, invalid("venue_id", "is required")
	}
	nickname := matching.NormalizeNickname(req.Nickname)
	if nickname == "" {
		return nil, invalid("nickname", "is required")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, invalid("description", "is required")
	}
	gender, err := model.ParseGender(req.Gender)
	if err != nil {
		return nil, invalid("gender", "must be male or female")
	}
	interest, err := model.ParseInterest(req.InterestedIn)
	if err != nil {
		return nil, invalid("interested_in", "must be men or women")
	}

	var instagram *string
	if handle := strings.TrimPrefix(strings.TrimSpace(req.Instagram), "@"); handle != "" {
		instagram = &handle
	}

	return &model.Checkin{
		VenueID:      req.VenueID,
		Nickname:     nickname,
		Instagram:    instagram,
		Gender:       gender,
		InterestedIn: interest,
		Description:  description,
	}, nil
}

// Restore validates a stored session against the backend. It returns
// ErrNoActiveCheckin when the caller should discard the session, and
// otherwise the session as currently stored on the server.
func (s *CheckinService) Restore(ctx context.Context, sess model.Session) (model.Session, error) {
	c, err := activeCheckin(ctx, s.checkins, sess)
	if err != nil {
		return model.Session{}, err
	}
	return model.SessionFromCheckin(*c), nil
}

// Matches lists the mutually compatible people present at the caller's
// venue, newest first, each with the caller's remaining quota towards them.
// A failed quota lookup shows as nothing sent; it does not fail the listing.
func (s *CheckinService) Matches(ctx context.Context, sess model.Session) ([]model.Match, error) {
	candidates, err := s.checkins.ListActive(ctx, sess.VenueID)
	if err != nil {
		return nil, fmt.Errorf("list active checkins: %w", err)
	}
	matched := matching.ComputeMatches(sess, candidates)

	out := make([]model.Match, len(matched))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quotaConcurrency)
	for i, c := range matched {
		i, c := i, c
		g.Go(func() error {
			sent, err := s.messages.CountSent(gctx, sess.VenueID, sess.Nickname, c.Nickname)
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"venue_id": sess.VenueID,
					"nickname": sess.Nickname,
					"to":       c.Nickname,
				}).WithError(err).Warn("Quota lookup failed, showing full quota")
				sent = 0
			}
			out[i] = model.Match{Checkin: c, Quota: matching.GetQuota(sent, s.rules.MessageLimit)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Checkout ends the caller's presence, honouring the minimum stay. When the
// stay is too short the checkin stays active and the outcome carries the
// configured minimum. Checking out twice is not an error.
func (s *CheckinService) Checkout(ctx context.Context, sess model.Session) (model.CheckoutOutcome, error) {
	log := s.log.WithFields(logrus.Fields{"venue_id": sess.VenueID, "nickname": sess.Nickname})

	status, err := s.checkins.CheckoutByNickname(ctx, sess.VenueID, sess.Nickname)
	if errors.Is(err, repository.ErrProcedureUnavailable) {
		log.Warn("Checkout procedure unavailable, deactivating without minimum stay")
		if _, err := s.checkins.Deactivate(ctx, sess.VenueID, sess.Nickname); err != nil {
			return model.CheckoutOutcome{}, fmt.Errorf("deactivate checkin: %w", err)
		}
		status = repository.CheckoutOK
	} else if err != nil {
		return model.CheckoutOutcome{}, fmt.Errorf("checkout: %w", err)
	}

	switch status {
	case repository.CheckoutOK:
		log.Info("Checked out")
		publish(ctx, s.events, realtime.CheckinEvent(realtime.CheckinUpdate, sess.VenueID, sess.Nickname))
		return model.CheckoutOutcome{Status: model.CheckoutCompleted}, nil
	case repository.CheckoutNotFound:
		log.Debug("Checkout found no active checkin")
		return model.CheckoutOutcome{Status: model.CheckoutCompleted}, nil
	case repository.CheckoutTooEarly:
		setting, err := s.settings.Get(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to read minimum stay")
		}
		return model.CheckoutOutcome{Status: model.CheckoutTooEarly, MinStayMinutes: setting.MinStayMinutes}, nil
	default:
		return model.CheckoutOutcome{}, fmt.Errorf("checkout: unexpected status %q", status)
	}
}
