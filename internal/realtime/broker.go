package realtime

import (
	"context"
	"sync"
)

// subscriptionBuffer is the number of undelivered events a subscriber may
// hold before further events are dropped.
const subscriptionBuffer = 64

// Publisher publishes events on their topic.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber opens subscriptions to one or more topics.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

// Broker is both a Publisher and a Subscriber.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription delivers events until closed. Close is safe to call more
// than once and from any goroutine.
type Subscription struct {
	events chan Event
	once   sync.Once
	stop   func()
}

func newSubscription(stop func()) *Subscription {
	return &Subscription{events: make(chan Event, subscriptionBuffer), stop: stop}
}

// Events returns the delivery channel. It is closed after Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close releases the subscription.
func (s *Subscription) Close() {
	s.once.Do(s.stop)
}
