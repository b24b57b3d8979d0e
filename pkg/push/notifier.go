package push

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/reconcile"
)

var (
	// ErrInvalidConfig is returned for missing gateway settings.
	ErrInvalidConfig = errors.New("push: invalid notifier configuration")
	// ErrDeliveryFailed is returned when the gateway rejects the notification.
	ErrDeliveryFailed = errors.New("push: notification delivery failed")
)

// Config holds push gateway settings.
type Config struct {
	GatewayURL  string        `env:"PUSH_GATEWAY_URL,required"`
	Secret      string        `env:"PUSH_GATEWAY_SECRET,required"`
	CallTimeout time.Duration `env:"PUSH_GATEWAY_TIMEOUT" envDefault:"10s"`
}

// Notifier delivers profile-updated notifications through an HTTP push
// gateway. Payloads are HMAC-SHA256 signed and timestamp-bound so the
// gateway can reject spoofed or replayed requests.
type Notifier struct {
	gatewayURL string
	secret     string
	client     *http.Client
}

// New creates a push notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: Secret is required", ErrInvalidConfig)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		gatewayURL: cfg.GatewayURL,
		secret:     cfg.Secret,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type notification struct {
	UID     string   `json:"uid"`
	Devices []string `json:"devices"`
	Reason  string   `json:"reason"`
}

// NotifyProfileUpdated tells every registered device to refetch the account
// profile. Accounts with no devices are a no-op.
func (n *Notifier) NotifyProfileUpdated(ctx context.Context, uid uuid.UUID, devices []reconcile.Device) error {
	if len(devices) == 0 {
		return nil
	}

	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.ID)
	}

	payload, err := json.Marshal(notification{
		UID:     uid.String(),
		Devices: ids,
		Reason:  "subscription_state_change",
	})
	if err != nil {
		return fmt.Errorf("push: marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	ts := time.Now().Unix()
	req.Header.Set("X-Push-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Push-Signature", Sign(n.secret, ts, payload))

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of "<timestamp>.<payload>". Binding the
// timestamp into the signature prevents replay.
func Sign(secret string, timestamp int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
