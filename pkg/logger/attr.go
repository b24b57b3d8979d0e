package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UID records the account identifier under the key "uid".
// A nil UUID yields an empty Attr.
func UID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return slog.Attr{}
	}
	return slog.String("uid", id.String())
}

// EventID records the provider event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("event_id", id)
}

// EventType records the provider event type under the key "event_type".
func EventType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("event_type", t)
}

// SubscriptionID records the provider subscription identifier under the key
// "subscription_id".
func SubscriptionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("subscription_id", id)
}

// CustomerID records the provider customer identifier under the key
// "customer_id".
func CustomerID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("customer_id", id)
}
