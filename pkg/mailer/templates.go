package mailer

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/dmitrymomot/billingkit/pkg/reconcile"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// template names double as Postmark tags so delivery analytics can be
// broken down per variant
const (
	tmplSubscriptionCreated     = "subscription_created"
	tmplSubscriptionUpgraded    = "subscription_upgraded"
	tmplSubscriptionDowngraded  = "subscription_downgraded"
	tmplSubscriptionCancelled   = "subscription_cancelled"
	tmplSubscriptionReactivated = "subscription_reactivated"
	tmplAccountDeleted          = "account_deleted"
	tmplPaymentConfirmed        = "payment_confirmed"
	tmplPaymentFailed           = "payment_failed"
	tmplSourceExpiring          = "source_expiring"
)

var subjects = map[string]string{
	tmplSubscriptionCreated:     "Welcome to {{.PlanName}}",
	tmplSubscriptionUpgraded:    "You have upgraded to {{.PlanName}}",
	tmplSubscriptionDowngraded:  "You have switched to {{.PlanName}}",
	tmplSubscriptionCancelled:   "Your {{.PlanName}} subscription has been cancelled",
	tmplSubscriptionReactivated: "Your {{.PlanName}} subscription is active again",
	tmplAccountDeleted:          "Your subscription has ended",
	tmplPaymentConfirmed:        "Payment received",
	tmplPaymentFailed:           "Payment failed, action required",
	tmplSourceExpiring:          "Your card is about to expire",
}

// templateContext is the rendering context for both subject and body.
type templateContext struct {
	reconcile.EmailData
	TeamName   string
	AmountText string
}

// renderer parses the embedded templates once and renders subject/body pairs.
type renderer struct {
	bodies   *template.Template
	subjects *template.Template
}

func newRenderer() (*renderer, error) {
	bodies, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("mailer: parse templates: %w", err)
	}

	subjectSet := template.New("subjects")
	for name, raw := range subjects {
		if _, err := subjectSet.New(name).Parse(raw); err != nil {
			return nil, fmt.Errorf("mailer: parse subject %s: %w", name, err)
		}
	}

	return &renderer{bodies: bodies, subjects: subjectSet}, nil
}

func (r *renderer) render(name string, data templateContext) (subject, body string, err error) {
	var sb strings.Builder
	if err := r.subjects.ExecuteTemplate(&sb, name, data); err != nil {
		return "", "", fmt.Errorf("mailer: render subject %s: %w", name, err)
	}
	subject = sb.String()

	sb.Reset()
	if err := r.bodies.ExecuteTemplate(&sb, name+".tmpl", data); err != nil {
		return "", "", fmt.Errorf("mailer: render body %s: %w", name, err)
	}
	return subject, sb.String(), nil
}

// formatAmount renders a minor-unit amount as a display string, e.g.
// 1099 USD -> "10.99 USD".
func formatAmount(amount int64, currency string) string {
	if amount == 0 && currency == "" {
		return ""
	}
	sign := ""
	if amount < 0 {
		// Credit and adjustment invoices carry negative totals; keep the sign
		// on the whole figure instead of both components.
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, strings.ToUpper(currency))
}
