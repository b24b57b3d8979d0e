package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string        `env:"TEST_CFG_NAME" envDefault:"fallback"`
	Count   int           `env:"TEST_CFG_COUNT" envDefault:"3"`
	Timeout time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"5s"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_REQUIRED_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, Load(&cfg))
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 3, cfg.Count)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("environment wins over defaults", func(t *testing.T) {
		t.Setenv("TEST_CFG_NAME", "from-env")
		t.Setenv("TEST_CFG_COUNT", "9")

		var cfg testConfig
		require.NoError(t, Load(&cfg))
		assert.Equal(t, "from-env", cfg.Name)
		assert.Equal(t, 9, cfg.Count)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg requiredConfig
		err := Load(&cfg)
		require.ErrorIs(t, err, ErrFailedToParse)
	})

	t.Run("unparsable value fails", func(t *testing.T) {
		t.Setenv("TEST_CFG_COUNT", "not-a-number")

		var cfg testConfig
		err := Load(&cfg)
		require.ErrorIs(t, err, ErrFailedToParse)
	})

	t.Run("nil pointer is rejected", func(t *testing.T) {
		err := Load[testConfig](nil)
		require.ErrorIs(t, err, ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg requiredConfig
			MustLoad(&cfg)
		})
	})

	t.Run("returns on success", func(t *testing.T) {
		t.Setenv("TEST_CFG_REQUIRED_SECRET", "s3cret")
		var cfg requiredConfig
		assert.NotPanics(t, func() { MustLoad(&cfg) })
		assert.Equal(t, "s3cret", cfg.Secret)
	})
}
