package dedup

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil client panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { New(nil, Config{}) })
	})

	t.Run("defaults apply", func(t *testing.T) {
		t.Parallel()
		s := New(redis.NewClient(&redis.Options{}), Config{})
		assert.Equal(t, "billing:webhook:event", s.prefix)
		assert.Equal(t, 72*time.Hour, s.ttl)
	})

	t.Run("config overrides defaults", func(t *testing.T) {
		t.Parallel()
		s := New(redis.NewClient(&redis.Options{}), Config{KeyPrefix: "dd", TTL: time.Hour})
		assert.Equal(t, "dd:evt_1", s.key("evt_1"))
		assert.Equal(t, time.Hour, s.ttl)
	})
}
