package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when a nil config pointer is passed to Load.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")
	// ErrFailedToParse wraps env parsing failures.
	ErrFailedToParse = errors.New("config: failed to parse environment")
)

var defaultEnvLoaded sync.Once

// Load populates the provided configuration struct from environment variables
// using `env` struct tags. The default .env file is loaded once per process;
// a missing .env file is not an error.
//
//	type StripeConfig struct {
//		APIKey        string `env:"STRIPE_API_KEY,required"`
//		WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
//	}
//
//	var cfg StripeConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrFailedToParse, err)
	}
	return nil
}

// MustLoad is like Load but panics on failure. Intended for service
// initialization where a bad environment should prevent startup.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
}
