package reconcile

import (
	"log/slog"
	"time"
)

// Option configures optional Service settings.
type Option func(*Service)

// WithLogger sets the structured logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCallTimeout bounds every external collaborator call. Values <= 0 are
// ignored; no collaborator call may block indefinitely.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithDeduper enables delivery deduplication by provider event id. Without a
// deduper, redeliveries are reprocessed; handlers stay idempotent either way.
func WithDeduper(d Deduper) Option {
	return func(s *Service) {
		s.dedup = d
	}
}
