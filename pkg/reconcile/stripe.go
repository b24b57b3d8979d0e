package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds configuration for the Stripe payments backend.
type StripeConfig struct {
	APIKey        string        `env:"STRIPE_API_KEY,required"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET,required"`
	PlanCacheTTL  time.Duration `env:"STRIPE_PLAN_CACHE_TTL" envDefault:"10m"`
}

// StripeBackend implements PaymentsBackend against the Stripe API. The plan
// catalog is cached in-process with a TTL; capability lookups during webhook
// processing must not hit the provider on every delivery.
type StripeBackend struct {
	api    *client.API
	secret string
	ttl    time.Duration

	mu        sync.RWMutex
	plans     map[string]*Plan
	fetchedAt time.Time
}

// NewStripeBackend creates a Stripe-backed payments backend.
func NewStripeBackend(cfg StripeConfig) (*StripeBackend, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	ttl := cfg.PlanCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &StripeBackend{
		api:    client.New(cfg.APIKey, nil),
		secret: cfg.WebhookSecret,
		ttl:    ttl,
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header against the webhook
// secret and normalizes the event payload. Signature failures wrap
// ErrInvalidSignature; the signature algorithm itself belongs to the SDK.
func (b *StripeBackend) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, b.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	return normalizeEvent(&ev)
}

// normalizeEvent decodes the provider envelope into a typed Event. Payloads
// are decoded into repo-owned structs rather than SDK types so the wire
// contract stays explicit and stable across SDK upgrades.
func normalizeEvent(ev *stripe.Event) (*Event, error) {
	out := &Event{
		ID:        ev.ID,
		Type:      EventType(ev.Type),
		CreatedAt: time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, ev.ID)
	}
	out.Raw = ev.Data.Raw

	switch {
	case strings.HasPrefix(string(ev.Type), "customer.subscription."):
		var sub Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %w", ErrMalformedEvent, err)
		}
		out.Subscription = &sub

		if len(ev.Data.PreviousAttributes) > 0 {
			prev, err := decodePreviousAttributes(ev.Data.PreviousAttributes)
			if err != nil {
				return nil, err
			}
			out.Previous = prev
		}

	case strings.HasPrefix(string(ev.Type), "invoice."):
		var inv Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: decode invoice: %w", ErrMalformedEvent, err)
		}
		out.Invoice = &inv

	case ev.Type == stripe.EventType(EventSourceExpiring):
		var src PaymentSource
		if err := json.Unmarshal(ev.Data.Raw, &src); err != nil {
			return nil, fmt.Errorf("%w: decode payment source: %w", ErrMalformedEvent, err)
		}
		out.Source = &src

	case strings.HasPrefix(string(ev.Type), "customer."):
		var cust Customer
		if err := json.Unmarshal(ev.Data.Raw, &cust); err != nil {
			return nil, fmt.Errorf("%w: decode customer: %w", ErrMalformedEvent, err)
		}
		out.Customer = &cust
	}

	return out, nil
}

// decodePreviousAttributes converts the loosely typed previous-attributes map
// into the typed delta the classifier consumes. Round-tripping through JSON
// keeps the decoding rules identical to the payload structs.
func decodePreviousAttributes(attrs map[string]any) (PreviousAttributes, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return PreviousAttributes{}, fmt.Errorf("%w: encode previous attributes: %w", ErrMalformedEvent, err)
	}
	var prev PreviousAttributes
	if err := json.Unmarshal(raw, &prev); err != nil {
		return PreviousAttributes{}, fmt.Errorf("%w: decode previous attributes: %w", ErrMalformedEvent, err)
	}
	return prev, nil
}

// PlanByID resolves a plan from the cached catalog, refreshing the catalog
// once on a miss so newly created plans are picked up without a restart.
func (b *StripeBackend) PlanByID(ctx context.Context, planID string) (*Plan, error) {
	if plan := b.cachedPlan(planID, false); plan != nil {
		return plan, nil
	}

	if err := b.refreshCatalog(ctx); err != nil {
		return nil, err
	}

	if plan := b.cachedPlan(planID, true); plan != nil {
		return plan, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
}

// cachedPlan returns a copy of the cached plan, or nil when missing or when
// the cache is stale (unless stale reads are allowed after a refresh).
func (b *StripeBackend) cachedPlan(planID string, afterRefresh bool) *Plan {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.plans == nil {
		return nil
	}
	if !afterRefresh && time.Since(b.fetchedAt) > b.ttl {
		return nil
	}
	plan, ok := b.plans[planID]
	if !ok {
		return nil
	}
	cp := *plan
	return &cp
}

func (b *StripeBackend) refreshCatalog(ctx context.Context) error {
	params := &stripe.PlanListParams{
		ListParams: stripe.ListParams{Context: ctx},
	}
	params.AddExpand("data.product")

	plans := make(map[string]*Plan)
	iter := b.api.Plans.List(params)
	for iter.Next() {
		p := iter.Plan()
		plan := &Plan{
			ID:            p.ID,
			Nickname:      p.Nickname,
			Amount:        p.Amount,
			Currency:      string(p.Currency),
			Interval:      PlanInterval(p.Interval),
			IntervalCount: p.IntervalCount,
			Metadata:      p.Metadata,
		}
		if p.Product != nil {
			plan.ProductID = p.Product.ID
			plan.ProductName = p.Product.Name
			plan.ProductMetadata = p.Product.Metadata
		}
		plans[p.ID] = plan
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}

	b.mu.Lock()
	b.plans = plans
	b.fetchedAt = time.Now()
	b.mu.Unlock()
	return nil
}

// FetchCustomer retrieves a provider customer with subscription summaries.
func (b *StripeBackend) FetchCustomer(ctx context.Context, customerID string) (*Customer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("subscriptions")

	c, err := b.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customer %s: %w", customerID, err)
	}

	cust := &Customer{
		ID:       c.ID,
		Email:    c.Email,
		Metadata: c.Metadata,
	}
	if c.Subscriptions != nil {
		for _, s := range c.Subscriptions.Data {
			summary := CustomerSummary{
				ID:     s.ID,
				Status: SubscriptionStatus(s.Status),
			}
			if s.Items != nil {
				for _, item := range s.Items.Data {
					if item.Plan != nil {
						summary.PlanID = item.Plan.ID
						break
					}
				}
			}
			cust.Subscriptions = append(cust.Subscriptions, summary)
		}
	}
	return cust, nil
}
