package reconcile

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// LogReporter is a Reporter that records events and failures through slog.
// It is the default sink for deployments without a dedicated error-tracking
// service; swap in a real implementation at construction time.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a slog-backed Reporter. A nil logger falls back to
// slog.Default.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) ReportEvent(ctx context.Context, ev *Event) {
	r.log.WarnContext(ctx, "unhandled webhook event reported",
		logger.EventID(ev.ID), logger.EventType(string(ev.Type)))
}

func (r *LogReporter) ReportError(ctx context.Context, ev *Event, err error) {
	r.log.ErrorContext(ctx, "webhook processing failed",
		logger.EventID(ev.ID), logger.EventType(string(ev.Type)), logger.Error(err))
}
