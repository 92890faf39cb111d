package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LocalBroker fans events out to subscribers in the same process. It is
// used when no Redis URL is configured.
type LocalBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

// NewLocalBroker constructs an empty LocalBroker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{topics: make(map[string]map[*Subscription]struct{})}
}

// Publish delivers ev to every current subscriber of its topic. Slow
// subscribers miss events rather than block the publisher.
func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	topic := ev.Topic()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.topics[topic] {
		select {
		case sub.events <- ev:
		default:
			logrus.WithFields(logrus.Fields{
				"component": "realtime",
				"topic":     topic,
			}).Warn("Subscriber buffer full, dropping event")
		}
	}
	return nil
}

// Subscribe registers a subscription on all given topics.
func (b *LocalBroker) Subscribe(_ context.Context, topics ...string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, t := range topics {
			delete(b.topics[t], sub)
			if len(b.topics[t]) == 0 {
				delete(b.topics, t)
			}
		}
		close(sub.events)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		if b.topics[t] == nil {
			b.topics[t] = make(map[*Subscription]struct{})
		}
		b.topics[t][sub] = struct{}{}
	}
	return sub, nil
}

// Close is a no-op; subscriptions are released individually.
func (b *LocalBroker) Close() error {
	return nil
}
