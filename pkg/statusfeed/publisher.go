package statusfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/billingkit/pkg/reconcile"
)

// Config holds status feed settings.
type Config struct {
	Topic string `env:"STATUS_FEED_TOPIC" envDefault:"billing.subscription.status"`
}

// Publisher emits subscription status records to a Redis pub/sub topic.
// Consumers rely on the records arriving after the affected account's cached
// state has been invalidated; that ordering is the orchestrator's job, the
// publisher only delivers.
type Publisher struct {
	client *redis.Client
	topic  string
}

// New creates a status feed publisher.
func New(client *redis.Client, cfg Config) *Publisher {
	if client == nil {
		panic("statusfeed: redis client is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "billing.subscription.status"
	}
	return &Publisher{client: client, topic: topic}
}

// Publish emits a single status record as JSON.
func (p *Publisher) Publish(ctx context.Context, rec reconcile.StatusRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("statusfeed: marshal record: %w", err)
	}
	if err := p.client.Publish(ctx, p.topic, payload).Err(); err != nil {
		return fmt.Errorf("statusfeed: publish to %s: %w", p.topic, err)
	}
	return nil
}
