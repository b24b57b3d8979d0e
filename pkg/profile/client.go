package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidConfig is returned for missing or malformed client settings.
	ErrInvalidConfig = errors.New("profile: invalid client configuration")
	// ErrUnexpectedStatus is returned when the profile server answers with a
	// non-2xx status.
	ErrUnexpectedStatus = errors.New("profile: unexpected response status")
)

// Config holds profile service client settings.
type Config struct {
	BaseURL     string        `env:"PROFILE_SERVER_URL,required"`
	AuthSecret  string        `env:"PROFILE_SERVER_SECRET,required"`
	CallTimeout time.Duration `env:"PROFILE_SERVER_TIMEOUT" envDefault:"10s"`
}

// Client is a thin wrapper over the profile microservice's internal API.
// The only operation this module needs is dropping the per-account cache so
// display data is refetched after a subscription change.
type Client struct {
	baseURL string
	secret  string
	client  *http.Client
}

// New creates a profile service client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("%w: AuthSecret is required", ErrInvalidConfig)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		secret:  cfg.AuthSecret,
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

// DeleteCache drops the profile server's cached entry for an account.
func (c *Client) DeleteCache(ctx context.Context, uid uuid.UUID) error {
	endpoint := fmt.Sprintf("%s/v1/cache/%s", c.baseURL, uid)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("profile: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("profile: delete cache for %s: %w", uid, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
