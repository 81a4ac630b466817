package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/ratelimit"
)

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	_, client := newRedis(t)
	handler := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: client, Prefix: "ratelimit:"},
		Window:  time.Second,
		Max:     1,
	}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/purchases/preview", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	first := httptest.NewRecorder()
	next.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRecorder()
	next.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get("Retry-After"))
	require.True(t, strings.Contains(second.Body.String(), "RATE_LIMITED"))

	other := httptest.NewRequest(http.MethodPost, "/v1/purchases/preview", nil)
	other.RemoteAddr = "198.51.100.1:5555"
	third := httptest.NewRecorder()
	next.ServeHTTP(third, other)
	require.Equal(t, http.StatusOK, third.Code)
}

func TestHandlerFailsOpen(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()
	handler := ratelimit.Handler{Limiter: ratelimit.Limiter{Client: client}, Window: time.Second, Max: 1}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestKeyByIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	require.Equal(t, "203.0.113.7", ratelimit.KeyByIP(req))
	req.RemoteAddr = "unix"
	require.Equal(t, "unix", ratelimit.KeyByIP(req))
}
