package reconcile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of provider webhook event types this module
// dispatches on. Anything outside this set is report-only.
type EventType string

const (
	EventCustomerCreated     EventType = "customer.created"
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventSourceExpiring      EventType = "customer.source.expiring"
	EventPaymentSucceeded    EventType = "invoice.payment_succeeded"
	EventPaymentFailed       EventType = "invoice.payment_failed"
)

// Event is a normalized webhook event. Exactly one of the payload pointers is
// set, matching the event type family. Events are immutable once parsed.
type Event struct {
	ID        string
	Type      EventType
	CreatedAt time.Time

	Subscription *Subscription
	Invoice      *Invoice
	Customer     *Customer
	Source       *PaymentSource

	// Previous carries the provider's previous-attributes delta for update
	// events; zero value for everything else.
	Previous PreviousAttributes

	Raw json.RawMessage
}

// SubscriptionStatus mirrors the provider's subscription status enum.
type SubscriptionStatus string

const (
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusActive            SubscriptionStatus = "active"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusUnpaid            SubscriptionStatus = "unpaid"
)

// PlanInterval is the provider's billing interval unit.
type PlanInterval string

const (
	IntervalDay   PlanInterval = "day"
	IntervalWeek  PlanInterval = "week"
	IntervalMonth PlanInterval = "month"
	IntervalYear  PlanInterval = "year"
)

// approximate interval length in days, used only for upgrade/downgrade
// ordering, never for billing math
var intervalDays = map[PlanInterval]int64{
	IntervalDay:   1,
	IntervalWeek:  7,
	IntervalMonth: 30,
	IntervalYear:  365,
}

// Plan is a read-only projection of a provider plan/price. When loaded from
// the plan catalog it also carries the owning product's name and metadata;
// plans decoded from webhook payloads leave those empty.
type Plan struct {
	ID            string            `json:"id"`
	ProductID     string            `json:"product"`
	Nickname      string            `json:"nickname"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Interval      PlanInterval      `json:"interval"`
	IntervalCount int64             `json:"interval_count"`
	Metadata      map[string]string `json:"metadata"`

	ProductName     string            `json:"-"`
	ProductMetadata map[string]string `json:"-"`
}

// periodDays returns the approximate billing period length in days.
// Unknown intervals rank as the longest period so they never classify as an
// upgrade by accident.
func (p *Plan) periodDays() int64 {
	days, ok := intervalDays[p.Interval]
	if !ok {
		return int64(1) << 40
	}
	count := p.IntervalCount
	if count <= 0 {
		count = 1
	}
	return days * count
}

// SubscriptionItem holds the plan attached to a subscription line item.
type SubscriptionItem struct {
	ID   string `json:"id"`
	Plan *Plan  `json:"plan"`
}

// Subscription is a read-only, possibly stale projection of the provider's
// subscription object, decoded from a webhook payload.
type Subscription struct {
	ID                string             `json:"id"`
	CustomerID        string             `json:"customer"`
	Status            SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64              `json:"current_period_end"`
	Plan              *Plan              `json:"plan"`
	Items             struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// ActivePlan returns the subscription's plan, falling back to the first line
// item when the top-level plan field is absent (multi-item subscriptions).
func (s *Subscription) ActivePlan() *Plan {
	if s.Plan != nil {
		return s.Plan
	}
	for _, item := range s.Items.Data {
		if item.Plan != nil {
			return item.Plan
		}
	}
	return nil
}

// PreviousAttributes is the typed subset of the provider's previous-attributes
// delta that drives transition classification and email variant selection.
// Nil pointers mean the field did not change.
type PreviousAttributes struct {
	Status            *SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd *bool               `json:"cancel_at_period_end"`
	Plan              *Plan               `json:"plan"`
}

// BillingReasonSubscriptionCreate marks the initial invoice of a brand-new
// subscription. Payment-failure emails are suppressed for this reason only;
// the creation flow communicates the failure itself.
const BillingReasonSubscriptionCreate = "subscription_create"

// Invoice is a read-only projection of the provider's invoice object.
type Invoice struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	Number         string `json:"number"`
	BillingReason  string `json:"billing_reason"`
	AmountDue      int64  `json:"amount_due"`
	Currency       string `json:"currency"`
}

// Customer is a read-only projection of the provider's customer object.
type Customer struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	Metadata      map[string]string `json:"metadata"`
	Subscriptions []CustomerSummary `json:"-"`
}

// CustomerSummary is a thin subscription summary attached to a fetched
// customer, enough to resolve the plan behind an expiring payment source.
type CustomerSummary struct {
	ID     string
	Status SubscriptionStatus
	PlanID string
}

// PaymentSource is the card object carried by customer.source.expiring.
type PaymentSource struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer"`
	Brand      string `json:"brand"`
	Last4      string `json:"last4"`
	ExpMonth   int64  `json:"exp_month"`
	ExpYear    int64  `json:"exp_year"`
}

// Account is the local account binding resolved per event. It is fetched
// fresh for every delivery and never persisted by this package.
type Account struct {
	UID   uuid.UUID
	Email string
}

// Device is a push-registered device belonging to an account.
type Device struct {
	ID           string
	Name         string
	PushEndpoint string
}

// StatusRecord is the downstream status record published after a subscription
// state transition. Consumers may assume the affected account's cached state
// was invalidated before the record was published.
type StatusRecord struct {
	UID            uuid.UUID `json:"uid"`
	EventCreatedAt int64     `json:"event_created_at"`
	SubscriptionID string    `json:"subscription_id"`
	Active         bool      `json:"is_active"`
	ProductID      string    `json:"product_id"`
	Capabilities   []string  `json:"capabilities"`
}

// EmailData is the template context handed to the mailer. Fields not relevant
// to a given template are left at their zero value.
type EmailData struct {
	Email    string
	UID      uuid.UUID
	PlanName string
	Currency string

	// Update emails
	OldPlanName string

	// Invoice emails
	InvoiceNumber string
	AmountDue     int64

	// Expiring source emails
	CardBrand    string
	CardLast4    string
	CardExpMonth int64
	CardExpYear  int64

	PeriodEnd time.Time
}
