package reconcile

import "errors"

var (
	// ErrInvalidSignature rejects a webhook whose signature cannot be verified.
	// The ingress layer answers non-2xx so the provider retries.
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrMalformedEvent marks a recognized event whose payload cannot be
	// decoded into the expected object.
	ErrMalformedEvent = errors.New("malformed webhook event payload")

	// Ignorable domain errors. These are logged and swallowed by the guard so
	// the provider does not retry deliveries the system can never process.
	ErrBouncedEmail       = errors.New("email recipient is permanently undeliverable")
	ErrUnresolvableSource = errors.New("payment source has no resolvable subscription")

	ErrAccountNotFound = errors.New("account not found")
	ErrPlanNotFound    = errors.New("plan not found in catalog")

	ErrMissingAPIKey        = errors.New("payments provider API key is required")
	ErrMissingWebhookSecret = errors.New("payments provider webhook secret is required")
	ErrMissingDependency    = errors.New("required service dependency is missing")
)

// IsIgnorable reports whether err belongs to the ignorable domain error
// categories that must not fail a webhook delivery.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrBouncedEmail) || errors.Is(err, ErrUnresolvableSource)
}
