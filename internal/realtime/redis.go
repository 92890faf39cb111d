package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisBroker publishes events over Redis pub/sub so that every API
// instance sees changes made through any other.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to the Redis server at url (redis://...) and
// verifies the connection.
func NewRedisBroker(ctx context.Context, url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxConnAge = 30 * time.Minute

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logrus.WithField("component", "realtime").Info("Redis connected")
	return &RedisBroker{client: client}, nil
}

// NewRedisBrokerFromClient wraps an existing client.
func NewRedisBrokerFromClient(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish serialises ev as JSON and publishes it on its topic.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, ev.Topic(), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Topic(), err)
	}
	return nil
}

// Subscribe subscribes to topics and waits for Redis to confirm before
// returning, so events published afterwards are not missed.
func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, topics...)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	sub := newSubscription(func() {
		close(done)
		ps.Close()
		<-finished
	})

	log := logrus.WithFields(logrus.Fields{"component": "realtime", "topics": topics})
	go func() {
		defer close(finished)
		defer close(sub.events)

		ch := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.WithError(err).Warn("Discarding malformed event")
					continue
				}
				select {
				case sub.events <- ev:
				case <-done:
					return
				}
			}
		}
	}()
	return sub, nil
}

// Close closes the underlying client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
