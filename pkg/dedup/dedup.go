package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds delivery deduplication settings. The TTL should comfortably
// exceed the provider's retry window so late redeliveries still match.
type Config struct {
	KeyPrefix string        `env:"WEBHOOK_DEDUP_PREFIX" envDefault:"billing:webhook:event"`
	TTL       time.Duration `env:"WEBHOOK_DEDUP_TTL" envDefault:"72h"`
}

// Store records processed webhook event ids in Redis so at-least-once
// deliveries are acknowledged without reprocessing.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a dedup store.
func New(client *redis.Client, cfg Config) *Store {
	if client == nil {
		panic("dedup: redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "billing:webhook:event"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// MarkOnce atomically claims an event id. It returns true exactly once per
// id within the TTL window; subsequent calls return false.
func (s *Store) MarkOnce(ctx context.Context, eventID string) (bool, error) {
	first, err := s.client.SetNX(ctx, s.key(eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: claim event %s: %w", eventID, err)
	}
	return first, nil
}

func (s *Store) key(eventID string) string {
	return s.prefix + ":" + eventID
}
