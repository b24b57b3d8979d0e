package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires base url", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{AuthSecret: "secret"})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("requires auth secret", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{BaseURL: "https://profile.internal"})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestDeleteCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uid := uuid.New()

	t.Run("calls the cache endpoint with bearer auth", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/v1/cache/"+uid.String(), r.URL.Path)
			assert.Equal(t, "Bearer internal-secret", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c, err := New(Config{BaseURL: srv.URL, AuthSecret: "internal-secret"})
		require.NoError(t, err)
		require.NoError(t, c.DeleteCache(ctx, uid))
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c, err := New(Config{BaseURL: srv.URL, AuthSecret: "wrong"})
		require.NoError(t, err)

		err = c.DeleteCache(ctx, uid)
		require.ErrorIs(t, err, ErrUnexpectedStatus)
	})
}
