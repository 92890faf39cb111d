package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
	"github.com/Shivanand-hulikatti/checkedin/internal/realtime"
)

// DefaultInterval is the fallback poll period.
const DefaultInterval = 20 * time.Second

// ErrNotStarted is returned by Refresh when no session is running.
var ErrNotStarted = errors.New("session not started")

// MatchSource produces the authoritative match list for a session.
type MatchSource interface {
	Matches(ctx context.Context, sess model.Session) ([]model.Match, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// OnMatches registers the callback that receives every refreshed list.
func OnMatches(fn func([]model.Match)) Option {
	return func(c *Controller) { c.onMatches = fn }
}

// OnMessage registers the callback for each incoming message event.
func OnMessage(fn func(realtime.Event)) Option {
	return func(c *Controller) { c.onMessage = fn }
}

// OnError registers the callback for failed refreshes.
func OnError(fn func(error)) Option {
	return func(c *Controller) { c.onError = fn }
}

// Controller owns the background work of one active session: a
// subscription to the venue's checkin changes, a subscription to messages
// addressed to the session, and a fallback poll. Every trigger re-queries
// the full match list.
//
// Callbacks run on the controller's goroutines and must not call Stop or
// Start.
type Controller struct {
	source   MatchSource
	subs     realtime.Subscriber
	interval time.Duration

	onMatches func([]model.Match)
	onMessage func(realtime.Event)
	onError   func(error)

	lifecycle sync.Mutex

	mu         sync.Mutex
	sess       *model.Session
	cancel     context.CancelFunc
	checkinSub *realtime.Subscription
	messageSub *realtime.Subscription

	wg      sync.WaitGroup
	flights singleflight.Group
	log     *logrus.Entry
}

// NewController constructs a stopped Controller.
func NewController(source MatchSource, subs realtime.Subscriber, opts ...Option) *Controller {
	c := &Controller{
		source:    source,
		subs:      subs,
		interval:  DefaultInterval,
		onMatches: func([]model.Match) {},
		onMessage: func(realtime.Event) {},
		onError:   func(error) {},
		log:       logrus.WithField("component", "session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start tears down any running session, then subscribes and starts polling
// for sess. It performs one refresh before returning. The session runs until
// Stop is called or ctx is cancelled.
func (c *Controller) Start(ctx context.Context, sess model.Session) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()

	checkinSub, err := c.subs.Subscribe(ctx, realtime.CheckinTopic(sess.VenueID))
	if err != nil {
		return fmt.Errorf("subscribe to checkins: %w", err)
	}
	messageSub, err := c.subs.Subscribe(ctx, realtime.MessageTopic(sess.VenueID, sess.Nickname))
	if err != nil {
		checkinSub.Close()
		return fmt.Errorf("subscribe to messages: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.sess = &sess
	c.cancel = cancel
	c.checkinSub = checkinSub
	c.messageSub = messageSub
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"venue_id": sess.VenueID,
		"nickname": sess.Nickname,
		"interval": c.interval,
	}).Debug("Session started")

	c.wg.Add(3)
	go c.watchCheckins(runCtx, checkinSub)
	go c.watchMessages(runCtx, messageSub)
	go c.poll(runCtx)

	_, _ = c.Refresh(runCtx)
	return nil
}

// Stop cancels the running session and waits for its goroutines. It is a
// no-op when nothing is running.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stop()
}

func (c *Controller) stop() {
	c.mu.Lock()
	cancel, checkinSub, messageSub := c.cancel, c.checkinSub, c.messageSub
	c.sess, c.cancel, c.checkinSub, c.messageSub = nil, nil, nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	checkinSub.Close()
	messageSub.Close()
	c.wg.Wait()
	c.log.Debug("Session stopped")
}

// Session returns the running session, if any.
func (c *Controller) Session() (model.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return model.Session{}, false
	}
	return *c.sess, true
}

// Refresh re-queries the match list and hands it to the OnMatches callback.
// Overlapping calls for the same session share one query and one callback.
// A list that arrives after the session was replaced is returned but not
// delivered.
func (c *Controller) Refresh(ctx context.Context) ([]model.Match, error) {
	sess, ok := c.Session()
	if !ok {
		return nil, ErrNotStarted
	}

	key := fmt.Sprintf("%d:%s", sess.VenueID, sess.Nickname)
	v, err, _ := c.flights.Do(key, func() (any, error) {
		matches, err := c.source.Matches(ctx, sess)
		if !c.current(sess) {
			return matches, err
		}
		if err != nil {
			c.log.WithError(err).Warn("Refresh failed")
			c.onError(err)
			return nil, err
		}
		c.onMatches(matches)
		return matches, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Match), nil
}

// current reports whether sess is still the running session.
func (c *Controller) current(sess model.Session) bool {
	running, ok := c.Session()
	return ok && running.VenueID == sess.VenueID &&
		running.Nickname == sess.Nickname && running.CheckinID == sess.CheckinID
}

func (c *Controller) watchCheckins(ctx context.Context, sub *realtime.Subscription) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
			_, _ = c.Refresh(ctx)
		}
	}
}

func (c *Controller) watchMessages(ctx context.Context, sub *realtime.Subscription) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.onMessage(ev)
		}
	}
}

func (c *Controller) poll(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.Refresh(ctx)
		}
	}
}
