package reconcile

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a Stripe-Signature header value for payload using the
// provider's t=<ts>,v1=<hmac-sha256(ts.payload)> scheme.
func signPayload(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func testBackend(t *testing.T) *StripeBackend {
	t.Helper()
	b, err := NewStripeBackend(StripeConfig{
		APIKey:        "sk_test_key",
		WebhookSecret: testWebhookSecret,
	})
	require.NoError(t, err)
	return b
}

func TestNewStripeBackend(t *testing.T) {
	t.Parallel()

	t.Run("requires api key", func(t *testing.T) {
		t.Parallel()
		_, err := NewStripeBackend(StripeConfig{WebhookSecret: "whsec_x"})
		require.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("requires webhook secret", func(t *testing.T) {
		t.Parallel()
		_, err := NewStripeBackend(StripeConfig{APIKey: "sk_x"})
		require.ErrorIs(t, err, ErrMissingWebhookSecret)
	})

	t.Run("defaults plan cache ttl", func(t *testing.T) {
		t.Parallel()
		b, err := NewStripeBackend(StripeConfig{APIKey: "sk_x", WebhookSecret: "whsec_x"})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, b.ttl)
	})
}

func TestParseWebhook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	payload := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"created": 1700000000,
		"data": {
			"object": {"id": "sub_1", "customer": "cus_1", "status": "active"},
			"previous_attributes": {"status": "incomplete"}
		}
	}`)

	t.Run("verifies a valid signature", func(t *testing.T) {
		t.Parallel()
		b := testBackend(t)
		ev, err := b.ParseWebhook(ctx, payload, signPayload(testWebhookSecret, payload, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, EventSubscriptionUpdated, ev.Type)
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		t.Parallel()
		b := testBackend(t)
		_, err := b.ParseWebhook(ctx, payload, signPayload("whsec_wrong", payload, time.Now()))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		t.Parallel()
		b := testBackend(t)
		sig := signPayload(testWebhookSecret, payload, time.Now())
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = ' '
		_, err := b.ParseWebhook(ctx, tampered, sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		t.Parallel()
		b := testBackend(t)
		stale := time.Now().Add(-time.Hour)
		_, err := b.ParseWebhook(ctx, payload, signPayload(testWebhookSecret, payload, stale))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects garbage header", func(t *testing.T) {
		t.Parallel()
		b := testBackend(t)
		_, err := b.ParseWebhook(ctx, payload, "not-a-signature")
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestNormalizeEvent(t *testing.T) {
	t.Parallel()

	mkEvent := func(t *testing.T, typ string, object string, prev map[string]any) *stripe.Event {
		t.Helper()
		return &stripe.Event{
			ID:      "evt_1",
			Type:    stripe.EventType(typ),
			Created: 1700000000,
			Data: &stripe.EventData{
				Raw:                json.RawMessage(object),
				PreviousAttributes: prev,
			},
		}
	}

	t.Run("subscription event with previous attributes", func(t *testing.T) {
		t.Parallel()
		object := `{
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"cancel_at_period_end": false,
			"current_period_end": 1710000000,
			"plan": {"id": "plan_pro", "product": "prod_1", "amount": 2000,
				"currency": "usd", "interval": "month", "interval_count": 1},
			"metadata": {"cancelled_for_customer_at": "2024-01-01"}
		}`
		prev := map[string]any{
			"status":               "incomplete",
			"cancel_at_period_end": true,
			"plan": map[string]any{
				"id": "plan_basic", "amount": float64(1000), "interval": "month",
			},
		}

		ev, err := normalizeEvent(mkEvent(t, "customer.subscription.updated", object, prev))
		require.NoError(t, err)

		require.NotNil(t, ev.Subscription)
		assert.Equal(t, "sub_1", ev.Subscription.ID)
		assert.Equal(t, "cus_1", ev.Subscription.CustomerID)
		assert.Equal(t, StatusActive, ev.Subscription.Status)
		assert.Equal(t, int64(1710000000), ev.Subscription.CurrentPeriodEnd)
		require.NotNil(t, ev.Subscription.Plan)
		assert.Equal(t, "prod_1", ev.Subscription.Plan.ProductID)
		assert.Equal(t, "2024-01-01", ev.Subscription.Metadata[MetadataCancelledForCustomer])

		require.NotNil(t, ev.Previous.Status)
		assert.Equal(t, StatusIncomplete, *ev.Previous.Status)
		require.NotNil(t, ev.Previous.CancelAtPeriodEnd)
		assert.True(t, *ev.Previous.CancelAtPeriodEnd)
		require.NotNil(t, ev.Previous.Plan)
		assert.Equal(t, "plan_basic", ev.Previous.Plan.ID)
		assert.Equal(t, int64(1000), ev.Previous.Plan.Amount)

		assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.CreatedAt)
	})

	t.Run("invoice event", func(t *testing.T) {
		t.Parallel()
		object := `{"id": "in_1", "customer": "cus_1", "subscription": "sub_1",
			"number": "INV-42", "billing_reason": "subscription_cycle",
			"amount_due": 1999, "currency": "usd"}`

		ev, err := normalizeEvent(mkEvent(t, "invoice.payment_failed", object, nil))
		require.NoError(t, err)
		require.NotNil(t, ev.Invoice)
		assert.Equal(t, "INV-42", ev.Invoice.Number)
		assert.Equal(t, "subscription_cycle", ev.Invoice.BillingReason)
		assert.Equal(t, int64(1999), ev.Invoice.AmountDue)
		assert.Nil(t, ev.Subscription)
	})

	t.Run("expiring source decodes as card not customer", func(t *testing.T) {
		t.Parallel()
		object := `{"id": "card_1", "customer": "cus_1", "brand": "Visa",
			"last4": "4242", "exp_month": 12, "exp_year": 2026}`

		ev, err := normalizeEvent(mkEvent(t, "customer.source.expiring", object, nil))
		require.NoError(t, err)
		require.NotNil(t, ev.Source)
		assert.Equal(t, "Visa", ev.Source.Brand)
		assert.Equal(t, "4242", ev.Source.Last4)
		assert.Nil(t, ev.Customer)
	})

	t.Run("customer event", func(t *testing.T) {
		t.Parallel()
		object := `{"id": "cus_1", "email": "user@example.com"}`

		ev, err := normalizeEvent(mkEvent(t, "customer.created", object, nil))
		require.NoError(t, err)
		require.NotNil(t, ev.Customer)
		assert.Equal(t, "user@example.com", ev.Customer.Email)
	})

	t.Run("unrecognized type keeps the envelope only", func(t *testing.T) {
		t.Parallel()
		ev, err := normalizeEvent(mkEvent(t, "charge.refunded", `{"id": "ch_1"}`, nil))
		require.NoError(t, err)
		assert.Equal(t, EventType("charge.refunded"), ev.Type)
		assert.Nil(t, ev.Subscription)
		assert.Nil(t, ev.Invoice)
		assert.Nil(t, ev.Customer)
		assert.Nil(t, ev.Source)
	})

	t.Run("missing data is malformed", func(t *testing.T) {
		t.Parallel()
		_, err := normalizeEvent(&stripe.Event{ID: "evt_1", Type: "customer.created"})
		require.ErrorIs(t, err, ErrMalformedEvent)
	})

	t.Run("broken object json is malformed", func(t *testing.T) {
		t.Parallel()
		_, err := normalizeEvent(mkEvent(t, "invoice.payment_succeeded", `{"amount_due": "x"`, nil))
		require.ErrorIs(t, err, ErrMalformedEvent)
	})
}
