// Package logger provides slog-based structured logging with a small factory
// and domain attribute helpers.
//
// The factory builds a JSON or text handler from environment-driven config,
// while the attribute helpers keep log field names consistent across packages
// (uid, event_id, event_type, subscription_id).
//
//	log := logger.New(cfg, logger.WithAttr(slog.String("component", "billing")))
//	log.Info("event processed", logger.EventID(ev.ID), logger.EventType(string(ev.Type)))
package logger
