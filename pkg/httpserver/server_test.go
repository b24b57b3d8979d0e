package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServerRun(t *testing.T) {
	t.Parallel()

	t.Run("serves until context cancel", func(t *testing.T) {
		t.Parallel()
		addr := freeAddr(t)
		srv := New(Config{Addr: addr})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			}))
		}()

		var resp *http.Response
		var err error
		require.Eventually(t, func() bool {
			resp, err = http.Get(fmt.Sprintf("http://%s/", addr))
			return err == nil
		}, 3*time.Second, 20*time.Millisecond)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, "ok", string(body))

		cancel()
		select {
		case runErr := <-done:
			require.NoError(t, runErr)
		case <-time.After(3 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("listener failure wraps start error", func(t *testing.T) {
		t.Parallel()
		srv := New(Config{Addr: "256.256.256.256:0"})
		err := srv.Run(context.Background(), nil)
		require.ErrorIs(t, err, ErrStart)
	})

	t.Run("double run is rejected", func(t *testing.T) {
		t.Parallel()
		addr := freeAddr(t)
		srv := New(Config{Addr: addr})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = srv.Run(ctx, nil) }()

		require.Eventually(t, func() bool {
			_, err := http.Get(fmt.Sprintf("http://%s/", addr))
			return err == nil
		}, 3*time.Second, 20*time.Millisecond)

		err := srv.Run(ctx, nil)
		require.ErrorIs(t, err, ErrStart)
	})
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	t.Run("liveness without checks", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		Healthcheck(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("readiness with passing checks", func(t *testing.T) {
		t.Parallel()
		ok := func(context.Context) error { return nil }
		rec := httptest.NewRecorder()
		Healthcheck(nil, ok, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
	})

	t.Run("readiness with failing check", func(t *testing.T) {
		t.Parallel()
		ok := func(context.Context) error { return nil }
		bad := func(context.Context) error { return errors.New("redis down") }
		rec := httptest.NewRecorder()
		Healthcheck(nil, ok, bad).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})
}
