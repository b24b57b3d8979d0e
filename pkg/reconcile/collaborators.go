package reconcile

import (
	"context"

	"github.com/google/uuid"
)

// PaymentsBackend abstracts the payments provider: webhook authenticity,
// plan catalog access, and customer lookups. The Stripe implementation in
// this package is the production backend; tests inject mocks.
type PaymentsBackend interface {
	// ParseWebhook verifies the payload signature and returns a normalized
	// event. A verification failure wraps ErrInvalidSignature.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)

	// PlanByID resolves a plan from the current catalog, including product
	// metadata. Returns ErrPlanNotFound for unknown plans.
	PlanByID(ctx context.Context, planID string) (*Plan, error)

	// FetchCustomer retrieves a provider customer with its subscription
	// summaries.
	FetchCustomer(ctx context.Context, customerID string) (*Customer, error)
}

// AccountStore resolves local account bindings for provider objects.
// Bindings are looked up fresh per event; the store owns persistence.
type AccountStore interface {
	// AccountByCustomer resolves the {uid, email} binding owning a provider
	// customer. Returns ErrAccountNotFound when no local account is bound.
	AccountByCustomer(ctx context.Context, customerID string) (*Account, error)

	// AccountByEmail resolves a local account by its primary email.
	AccountByEmail(ctx context.Context, email string) (*Account, error)

	// AccountByUID fetches the account record itself. Returns
	// ErrAccountNotFound when the account has been deleted.
	AccountByUID(ctx context.Context, uid uuid.UUID) (*Account, error)

	// BindCustomer persists the uid -> provider customer binding.
	BindCustomer(ctx context.Context, uid uuid.UUID, customerID string) error

	// Devices lists the push-registered devices for an account.
	Devices(ctx context.Context, uid uuid.UUID) ([]Device, error)
}

// CustomerCache invalidates the cached provider-customer projection so the
// next read refetches from the provider.
type CustomerCache interface {
	InvalidateCustomer(ctx context.Context, uid uuid.UUID, email string) error
}

// ProfileCache invalidates the profile service's per-account cache.
type ProfileCache interface {
	DeleteCache(ctx context.Context, uid uuid.UUID) error
}

// PushNotifier notifies every registered device that the account's profile
// changed and should be refetched.
type PushNotifier interface {
	NotifyProfileUpdated(ctx context.Context, uid uuid.UUID, devices []Device) error
}

// StatusPublisher emits downstream subscription status records.
type StatusPublisher interface {
	Publish(ctx context.Context, rec StatusRecord) error
}

// Mailer sends exactly one transactional email per call. Implementations must
// wrap permanent-bounce failures in ErrBouncedEmail so the guard can swallow
// them.
type Mailer interface {
	SubscriptionCreated(ctx context.Context, data EmailData) error
	SubscriptionUpgraded(ctx context.Context, data EmailData) error
	SubscriptionDowngraded(ctx context.Context, data EmailData) error
	SubscriptionCancelled(ctx context.Context, data EmailData) error
	SubscriptionReactivated(ctx context.Context, data EmailData) error
	AccountDeleted(ctx context.Context, data EmailData) error
	PaymentConfirmed(ctx context.Context, data EmailData) error
	PaymentFailed(ctx context.Context, data EmailData) error
	SourceExpiring(ctx context.Context, data EmailData) error
}

// Reporter is the error-tracking sink. Event context is passed explicitly to
// every call instead of mutating an ambient scope.
type Reporter interface {
	// ReportEvent records an event that was received but not handled
	// (unrecognized type). It must not raise.
	ReportEvent(ctx context.Context, ev *Event)

	// ReportError records an unexpected processing failure with its event
	// context before the error is re-raised to the ingress layer.
	ReportError(ctx context.Context, ev *Event, err error)
}

// Deduper guards against at-least-once webhook redelivery. MarkOnce returns
// false when the event id has already been processed.
type Deduper interface {
	MarkOnce(ctx context.Context, eventID string) (first bool, err error)
}
