package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/reconcile"
)

// webhookBodyLimit bounds inbound webhook payloads. Provider events are a
// few KB; anything near the limit is hostile.
const webhookBodyLimit = 1 << 20

// signatureHeader carries the provider's payload signature.
const signatureHeader = "Stripe-Signature"

// Reconciler is the webhook processing surface the module mounts. It is the
// reconcile.Service in production and a mock in tests.
type Reconciler interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) error
}

// Module is the billing webhook ingress.
type Module struct {
	reconciler Reconciler
	log        *slog.Logger
}

// ModuleOption configures the billing module.
type ModuleOption func(*Module)

// WithLogger sets the structured logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) ModuleOption {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// NewModule creates the billing webhook module. Panics on a nil reconciler
// to fail fast during initialization.
func NewModule(reconciler Reconciler, opts ...ModuleOption) *Module {
	if reconciler == nil {
		panic("billing: reconciler is required")
	}
	m := &Module{
		reconciler: reconciler,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle returns the module's HTTP handler.
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billingModule.Handle())
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhook", m.handleWebhook)
	return r
}

// handleWebhook is the single webhook ingress. It answers 2xx for processed
// and deliberately ignored events; non-2xx only for signature failures and
// unexpected errors, which makes the provider redeliver.
func (m *Module) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		// Treated identically to a bad signature; the response stays vague.
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_signature"})
		return
	}

	err = m.reconciler.ProcessWebhook(r.Context(), payload, signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
	case errors.Is(err, reconcile.ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_signature"})
	default:
		m.log.ErrorContext(r.Context(), "webhook processing failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "processing_failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
