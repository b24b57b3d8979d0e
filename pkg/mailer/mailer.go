package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/billingkit/pkg/reconcile"
)

var (
	// ErrInvalidConfig is returned for missing or malformed mail settings.
	ErrInvalidConfig = errors.New("mailer: invalid configuration")
	// ErrFailedToSend wraps transport failures other than permanent bounces.
	ErrFailedToSend = errors.New("mailer: failed to send email")
)

// postmarkInactiveRecipient is Postmark's API error code for recipients that
// previously hard-bounced and are suppressed.
const postmarkInactiveRecipient = 406

// postmarkSender is the subset of the Postmark client used here, extracted
// so tests can stub the transport.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// Mailer implements reconcile.Mailer on top of Postmark. Each method sends
// exactly one transactional email from a fixed template variant.
type Mailer struct {
	client   postmarkSender
	renderer *renderer
	config   Config
}

// New creates a Postmark-backed mailer. Configuration is validated eagerly so
// a misconfigured service refuses to start.
func New(cfg Config) (*Mailer, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}

	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	return &Mailer{
		client:   postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		renderer: r,
		config:   cfg,
	}, nil
}

func (m *Mailer) SubscriptionCreated(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplSubscriptionCreated, data)
}

func (m *Mailer) SubscriptionUpgraded(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplSubscriptionUpgraded, data)
}

func (m *Mailer) SubscriptionDowngraded(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplSubscriptionDowngraded, data)
}

func (m *Mailer) SubscriptionCancelled(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplSubscriptionCancelled, data)
}

func (m *Mailer) SubscriptionReactivated(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplSubscriptionReactivated, data)
}

func (m *Mailer) AccountDeleted(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplAccountDeleted, data)
}

func (m *Mailer) PaymentConfirmed(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplPaymentConfirmed, data)
}

func (m *Mailer) PaymentFailed(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplPaymentFailed, data)
}

func (m *Mailer) SourceExpiring(ctx context.Context, data reconcile.EmailData) error {
	return m.send(ctx, tmplSourceExpiring, data)
}

func (m *Mailer) send(ctx context.Context, tmpl string, data reconcile.EmailData) error {
	if !emailRegex.MatchString(data.Email) {
		return fmt.Errorf("%w: invalid recipient %q", ErrFailedToSend, data.Email)
	}

	subject, body, err := m.renderer.render(tmpl, templateContext{
		EmailData:  data,
		TeamName:   m.config.ProductTeamName,
		AmountText: formatAmount(data.AmountDue, data.Currency),
	})
	if err != nil {
		return err
	}

	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:       m.config.SenderEmail,
		ReplyTo:    m.config.SupportEmail,
		To:         data.Email,
		Subject:    subject,
		Tag:        tmpl,
		HTMLBody:   body,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode == postmarkInactiveRecipient {
		// The recipient hard-bounced before; sending will never succeed and
		// the delivery must not be retried by the provider.
		return fmt.Errorf("%w: postmark suppressed recipient %s", reconcile.ErrBouncedEmail, data.Email)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
