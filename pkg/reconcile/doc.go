// Package reconcile maps payments-provider subscription webhooks onto
// idempotent local side effects.
//
// A webhook delivery flows through four stages:
//
//   - Normalizer: the Stripe backend verifies the payload signature and
//     decodes it into a typed Event with a closed EventType tag set.
//   - Router: an explicit dispatch table maps each recognized type to exactly
//     one handler; unmapped types are reported to the error sink and
//     acknowledged without processing.
//   - Classifier: subscription events are classified against the
//     active/inactive boundary (trialing, active, and past_due count as
//     active). Only genuine boundary crossings trigger state side effects;
//     plan-only changes never do.
//   - Orchestrator: a transition invalidates the cached customer projection
//     and the profile cache, notifies registered devices, and publishes one
//     downstream status record carrying the product's capability set.
//     Transactional email selection runs per event with its own, finer
//     conditions.
//
// The whole pipeline sits behind a guard: permanently bounced recipients and
// payment sources without a resolvable subscription are logged and swallowed
// so the provider stops redelivering, while every other failure is reported
// with event context and re-raised for provider-side retry.
//
// Deliveries are at-least-once and may arrive out of order. Handlers are
// idempotent per event id, and an optional Deduper short-circuits exact
// redeliveries.
//
// # Usage
//
//	backend, err := reconcile.NewStripeBackend(stripeCfg)
//	if err != nil { ... }
//
//	svc, err := reconcile.NewService(reconcile.Dependencies{
//		Backend:       backend,
//		Accounts:      accountStore,
//		CustomerCache: custCache,
//		ProfileCache:  profileClient,
//		Push:          pushNotifier,
//		Mailer:        mailer,
//		Status:        statusFeed,
//		Reporter:      reconcile.NewLogReporter(log),
//	}, reconcile.WithLogger(log), reconcile.WithDeduper(dedupStore))
//	if err != nil { ... }
//
//	// inside the webhook HTTP handler:
//	err = svc.ProcessWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
package reconcile
