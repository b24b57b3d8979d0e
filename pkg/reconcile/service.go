package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// MetadataCancelledForCustomer is the subscription metadata marker set when a
// cancellation has already been communicated to the customer. Deletion events
// carrying this marker send no further email.
const MetadataCancelledForCustomer = "cancelled_for_customer_at"

type handlerFunc func(ctx context.Context, ev *Event) error

// Dependencies bundles the collaborators the reconciliation service drives.
// All fields are required.
type Dependencies struct {
	Backend       PaymentsBackend
	Accounts      AccountStore
	CustomerCache CustomerCache
	ProfileCache  ProfileCache
	Push          PushNotifier
	Mailer        Mailer
	Status        StatusPublisher
	Reporter      Reporter
}

func (d Dependencies) validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"payments backend", d.Backend != nil},
		{"account store", d.Accounts != nil},
		{"customer cache", d.CustomerCache != nil},
		{"profile cache", d.ProfileCache != nil},
		{"push notifier", d.Push != nil},
		{"mailer", d.Mailer != nil},
		{"status publisher", d.Status != nil},
		{"error reporter", d.Reporter != nil},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrMissingDependency, c.name)
		}
	}
	return nil
}

// Service reconciles provider webhook events into local side effects:
// cache invalidation, push notification, transactional email, and downstream
// status records. One webhook delivery maps to one Service call; the service
// itself keeps no per-delivery state.
type Service struct {
	backend       PaymentsBackend
	accounts      AccountStore
	customerCache CustomerCache
	profileCache  ProfileCache
	push          PushNotifier
	mailer        Mailer
	status        StatusPublisher
	reporter      Reporter

	dedup       Deduper
	log         *slog.Logger
	callTimeout time.Duration

	handlers map[EventType]handlerFunc
}

// NewService creates the reconciliation service. The dispatch table is built
// once here as an explicit mapping from the closed event-type set to handler
// functions; exactly one handler runs per recognized event.
func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	s := &Service{
		backend:       deps.Backend,
		accounts:      deps.Accounts,
		customerCache: deps.CustomerCache,
		profileCache:  deps.ProfileCache,
		push:          deps.Push,
		mailer:        deps.Mailer,
		status:        deps.Status,
		reporter:      deps.Reporter,
		log:           slog.Default(),
		callTimeout:   30 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.handlers = map[EventType]handlerFunc{
		EventCustomerCreated:     s.handleCustomerCreated,
		EventSubscriptionCreated: s.handleSubscriptionCreated,
		EventSubscriptionUpdated: s.handleSubscriptionUpdated,
		EventSubscriptionDeleted: s.handleSubscriptionDeleted,
		EventSourceExpiring:      s.handleSourceExpiring,
		EventPaymentSucceeded:    s.handleInvoicePaymentSucceeded,
		EventPaymentFailed:       s.handleInvoicePaymentFailed,
	}

	return s, nil
}

// ProcessWebhook is the single ingress operation: verify, dedup, dispatch.
// It returns nil for processed and deliberately ignored events, and an error
// only for signature failures and unexpected processing errors, in which case
// the HTTP layer answers non-2xx and the provider retries.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.backend.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	if s.dedup != nil {
		first, err := s.dedup.MarkOnce(ctx, ev.ID)
		if err != nil {
			// A dedup store outage must not drop deliveries; reprocessing is
			// safe because every handler is idempotent per event id.
			s.log.WarnContext(ctx, "webhook dedup check failed, processing anyway",
				logger.EventID(ev.ID), logger.Error(err))
		} else if !first {
			s.log.InfoContext(ctx, "duplicate webhook delivery ignored",
				logger.EventID(ev.ID), logger.EventType(string(ev.Type)))
			return nil
		}
	}

	return s.dispatch(ctx, ev)
}

// dispatch routes the event through the handler table and applies the
// ignorable-error guard around the selected handler.
func (s *Service) dispatch(ctx context.Context, ev *Event) error {
	handler, ok := s.handlers[ev.Type]
	if !ok {
		// Unrecognized types are reported for visibility but acknowledged so
		// the provider does not retry them forever.
		s.reporter.ReportEvent(ctx, ev)
		s.log.InfoContext(ctx, "unhandled webhook event type",
			logger.EventID(ev.ID), logger.EventType(string(ev.Type)))
		return nil
	}

	if err := handler(ctx, ev); err != nil {
		if IsIgnorable(err) {
			s.log.WarnContext(ctx, "ignorable webhook processing error",
				logger.EventID(ev.ID), logger.EventType(string(ev.Type)), logger.Error(err))
			return nil
		}
		s.reporter.ReportError(ctx, ev, err)
		return err
	}
	return nil
}

// handleCustomerCreated binds a freshly created provider customer to the
// local account that owns its email address.
func (s *Service) handleCustomerCreated(ctx context.Context, ev *Event) error {
	cust := ev.Customer
	if cust == nil {
		return fmt.Errorf("%w: event %s carries no customer", ErrMalformedEvent, ev.ID)
	}
	if cust.Email == "" {
		s.log.InfoContext(ctx, "customer created without email, skipping binding",
			logger.EventID(ev.ID), logger.CustomerID(cust.ID))
		return nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	acct, err := s.accounts.AccountByEmail(callCtx, cust.Email)
	if errors.Is(err, ErrAccountNotFound) {
		// Customers created directly in the provider dashboard have no local
		// account; nothing to bind.
		s.log.InfoContext(ctx, "no local account for created customer",
			logger.EventID(ev.ID), logger.CustomerID(cust.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup account by email: %w", err)
	}

	if err := s.accounts.BindCustomer(callCtx, acct.UID, cust.ID); err != nil {
		return fmt.Errorf("bind customer %s: %w", cust.ID, err)
	}
	return nil
}

func (s *Service) handleSubscriptionCreated(ctx context.Context, ev *Event) error {
	sub := ev.Subscription
	if sub == nil {
		return fmt.Errorf("%w: event %s carries no subscription", ErrMalformedEvent, ev.ID)
	}

	acct, err := s.resolveAccount(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if acct == nil {
		s.logOrphan(ctx, ev, sub.CustomerID)
		return nil
	}

	tr := classifyCreated(sub)
	if tr.Transitioned {
		if err := s.applyTransition(ctx, ev, sub, acct, tr.ToActive); err != nil {
			return err
		}
	}

	// An incomplete creation gets its welcome email once the first payment
	// lands and the subscription transitions via an update event.
	if !tr.ToActive {
		return nil
	}
	return s.mailer.SubscriptionCreated(ctx, s.emailData(ctx, acct, sub, sub.ActivePlan()))
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, ev *Event) error {
	sub := ev.Subscription
	if sub == nil {
		return fmt.Errorf("%w: event %s carries no subscription", ErrMalformedEvent, ev.ID)
	}

	acct, err := s.resolveAccount(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if acct == nil {
		s.logOrphan(ctx, ev, sub.CustomerID)
		return nil
	}

	if tr := classifyUpdated(ev.Previous, sub); tr.Transitioned {
		if err := s.applyTransition(ctx, ev, sub, acct, tr.ToActive); err != nil {
			return err
		}
	}

	// Email selection is finer-grained than the active/inactive flag and runs
	// whether or not the event was a transition.
	data := s.emailData(ctx, acct, sub, sub.ActivePlan())
	if ev.Previous.Plan != nil {
		data.OldPlanName = s.planName(ctx, ev.Previous.Plan)
	}

	switch updateEmailKind(ev.Previous, sub) {
	case emailUpgrade:
		return s.mailer.SubscriptionUpgraded(ctx, data)
	case emailDowngrade:
		return s.mailer.SubscriptionDowngraded(ctx, data)
	case emailCancellation:
		return s.mailer.SubscriptionCancelled(ctx, data)
	case emailReactivation:
		return s.mailer.SubscriptionReactivated(ctx, data)
	default:
		return nil
	}
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev *Event) error {
	sub := ev.Subscription
	if sub == nil {
		return fmt.Errorf("%w: event %s carries no subscription", ErrMalformedEvent, ev.ID)
	}

	acct, err := s.resolveAccount(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if acct == nil {
		s.logOrphan(ctx, ev, sub.CustomerID)
		return nil
	}

	// Deletion always transitions out of the active set.
	tr := classifyDeleted()
	if err := s.applyTransition(ctx, ev, sub, acct, tr.ToActive); err != nil {
		return err
	}

	data := s.emailData(ctx, acct, sub, sub.ActivePlan())

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	_, err = s.accounts.AccountByUID(callCtx, acct.UID)
	switch {
	case err == nil:
		return s.mailer.SubscriptionCancelled(ctx, data)
	case errors.Is(err, ErrAccountNotFound):
		// The local account is gone. If the cancellation was already
		// communicated when the subscription was flagged for the customer,
		// stay silent; otherwise explain why billing stopped.
		if sub.Metadata[MetadataCancelledForCustomer] != "" {
			s.log.InfoContext(ctx, "deleted subscription already cancelled for customer",
				logger.EventID(ev.ID), logger.SubscriptionID(sub.ID))
			return nil
		}
		return s.mailer.AccountDeleted(ctx, data)
	default:
		return fmt.Errorf("fetch account %s: %w", acct.UID, err)
	}
}

// handleSourceExpiring warns the account that the card backing its
// subscription is about to expire.
func (s *Service) handleSourceExpiring(ctx context.Context, ev *Event) error {
	src := ev.Source
	if src == nil {
		return fmt.Errorf("%w: event %s carries no payment source", ErrMalformedEvent, ev.ID)
	}

	callCtx, cancel := s.callContext(ctx)
	cust, err := s.backend.FetchCustomer(callCtx, src.CustomerID)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch customer %s: %w", src.CustomerID, err)
	}

	var summary *CustomerSummary
	for i := range cust.Subscriptions {
		if IsActiveStatus(cust.Subscriptions[i].Status) {
			summary = &cust.Subscriptions[i]
			break
		}
	}
	if summary == nil {
		return fmt.Errorf("%w: customer %s", ErrUnresolvableSource, src.CustomerID)
	}

	acct, err := s.resolveAccount(ctx, src.CustomerID)
	if err != nil {
		return err
	}
	if acct == nil {
		s.logOrphan(ctx, ev, src.CustomerID)
		return nil
	}

	data := EmailData{
		Email:        acct.Email,
		UID:          acct.UID,
		CardBrand:    src.Brand,
		CardLast4:    src.Last4,
		CardExpMonth: src.ExpMonth,
		CardExpYear:  src.ExpYear,
	}
	if plan, err := s.backend.PlanByID(ctx, summary.PlanID); err == nil {
		data.PlanName = displayName(plan)
	}
	return s.mailer.SourceExpiring(ctx, data)
}

func (s *Service) handleInvoicePaymentSucceeded(ctx context.Context, ev *Event) error {
	inv := ev.Invoice
	if inv == nil {
		return fmt.Errorf("%w: event %s carries no invoice", ErrMalformedEvent, ev.ID)
	}

	acct, err := s.resolveAccount(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	if acct == nil {
		s.logOrphan(ctx, ev, inv.CustomerID)
		return nil
	}

	return s.mailer.PaymentConfirmed(ctx, EmailData{
		Email:         acct.Email,
		UID:           acct.UID,
		InvoiceNumber: inv.Number,
		AmountDue:     inv.AmountDue,
		Currency:      inv.Currency,
	})
}

func (s *Service) handleInvoicePaymentFailed(ctx context.Context, ev *Event) error {
	inv := ev.Invoice
	if inv == nil {
		return fmt.Errorf("%w: event %s carries no invoice", ErrMalformedEvent, ev.ID)
	}

	// The initial invoice of a brand-new subscription is handled by the
	// creation flow; a second failure email during signup is confusing.
	if inv.BillingReason == BillingReasonSubscriptionCreate {
		s.log.InfoContext(ctx, "payment failure on initial invoice, email suppressed",
			logger.EventID(ev.ID), logger.SubscriptionID(inv.SubscriptionID))
		return nil
	}

	acct, err := s.resolveAccount(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	if acct == nil {
		s.logOrphan(ctx, ev, inv.CustomerID)
		return nil
	}

	return s.mailer.PaymentFailed(ctx, EmailData{
		Email:         acct.Email,
		UID:           acct.UID,
		InvoiceNumber: inv.Number,
		AmountDue:     inv.AmountDue,
		Currency:      inv.Currency,
	})
}

// applyTransition drives the side effects of an active/inactive transition:
// cache invalidation and push notification fan out concurrently, then exactly
// one status record is published. Publication deliberately waits for the
// invalidations so downstream consumers observe refreshed account state.
func (s *Service) applyTransition(ctx context.Context, ev *Event, sub *Subscription, acct *Account, active bool) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		callCtx, cancel := s.callContext(gctx)
		defer cancel()
		if err := s.customerCache.InvalidateCustomer(callCtx, acct.UID, acct.Email); err != nil {
			return fmt.Errorf("invalidate customer projection: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := s.callContext(gctx)
		defer cancel()
		if err := s.profileCache.DeleteCache(callCtx, acct.UID); err != nil {
			return fmt.Errorf("invalidate profile cache: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := s.callContext(gctx)
		defer cancel()
		devices, err := s.accounts.Devices(callCtx, acct.UID)
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		if err := s.push.NotifyProfileUpdated(callCtx, acct.UID, devices); err != nil {
			return fmt.Errorf("push notify: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	rec := StatusRecord{
		UID:            acct.UID,
		EventCreatedAt: ev.CreatedAt.Unix(),
		SubscriptionID: sub.ID,
		Active:         active,
	}
	if plan := sub.ActivePlan(); plan != nil {
		rec.ProductID = plan.ProductID
		rec.Capabilities = s.planCapabilities(ctx, plan)
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.status.Publish(callCtx, rec); err != nil {
		return fmt.Errorf("publish status record: %w", err)
	}
	return nil
}

// planCapabilities recomputes the product's capability union from the live
// plan catalog. A plan missing from the catalog falls back to the webhook
// payload's own metadata so a stale catalog cannot drop the record.
func (s *Service) planCapabilities(ctx context.Context, plan *Plan) []string {
	catalog, err := s.backend.PlanByID(ctx, plan.ID)
	if err != nil {
		s.log.WarnContext(ctx, "plan not in catalog, using payload metadata",
			slog.String("plan_id", plan.ID), logger.Error(err))
		return AllCapabilities(plan.ProductMetadata, plan.Metadata)
	}
	return AllCapabilities(catalog.ProductMetadata, catalog.Metadata)
}

// resolveAccount looks up the local {uid, email} binding for a provider
// customer. An unknown customer resolves to nil without error: provider-side
// test objects and orphaned customers must not fail the delivery.
func (s *Service) resolveAccount(ctx context.Context, customerID string) (*Account, error) {
	if customerID == "" {
		return nil, nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	acct, err := s.accounts.AccountByCustomer(callCtx, customerID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account for customer %s: %w", customerID, err)
	}
	return acct, nil
}

func (s *Service) logOrphan(ctx context.Context, ev *Event, customerID string) {
	s.log.DebugContext(ctx, "event does not belong to any known account",
		logger.EventID(ev.ID), logger.EventType(string(ev.Type)), logger.CustomerID(customerID))
}

// emailData assembles the shared template context for subscription emails.
func (s *Service) emailData(ctx context.Context, acct *Account, sub *Subscription, plan *Plan) EmailData {
	data := EmailData{
		Email: acct.Email,
		UID:   acct.UID,
	}
	if sub.CurrentPeriodEnd > 0 {
		data.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if plan != nil {
		data.PlanName = s.planName(ctx, plan)
		data.Currency = plan.Currency
		data.AmountDue = plan.Amount
	}
	return data
}

// planName prefers the catalog's product name over whatever the webhook
// payload carries.
func (s *Service) planName(ctx context.Context, plan *Plan) string {
	if catalog, err := s.backend.PlanByID(ctx, plan.ID); err == nil {
		return displayName(catalog)
	}
	return displayName(plan)
}

func displayName(plan *Plan) string {
	if plan.ProductName != "" {
		return plan.ProductName
	}
	if plan.Nickname != "" {
		return plan.Nickname
	}
	return plan.ID
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.callTimeout)
}
