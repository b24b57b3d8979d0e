package custcache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds customer projection cache settings.
type Config struct {
	KeyPrefix string `env:"CUSTOMER_CACHE_PREFIX" envDefault:"billing:customer"`
}

// Cache invalidates the cached provider-customer projection stored in Redis.
// The projection is written by the read path (outside this module); this
// side only deletes, forcing the next read to refetch from the provider.
type Cache struct {
	client *redis.Client
	prefix string
}

// New creates a customer projection cache invalidator.
func New(client *redis.Client, cfg Config) *Cache {
	if client == nil {
		panic("custcache: redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "billing:customer"
	}
	return &Cache{client: client, prefix: prefix}
}

// InvalidateCustomer deletes the projection entries for an account. Both the
// uid- and email-keyed entries are removed in one round trip; deleting a
// missing key is a no-op, which keeps the operation idempotent.
func (c *Cache) InvalidateCustomer(ctx context.Context, uid uuid.UUID, email string) error {
	keys := make([]string, 0, 2)
	if uid != uuid.Nil {
		keys = append(keys, c.uidKey(uid))
	}
	if email != "" {
		keys = append(keys, c.emailKey(email))
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("custcache: delete projection: %w", err)
	}
	return nil
}

func (c *Cache) uidKey(uid uuid.UUID) string {
	return fmt.Sprintf("%s:uid:%s", c.prefix, uid)
}

func (c *Cache) emailKey(email string) string {
	return fmt.Sprintf("%s:email:%s", c.prefix, email)
}
