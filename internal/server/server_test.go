package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyncSphere7/smartwin-official/internal/config"
	"github.com/SyncSphere7/smartwin-official/internal/payment"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

// Requests below fail binding before reaching any service, so nil
// services are never called.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", AppURL: "https://smartwin.example", GatewayTimeout: time.Second}
	s := New(cfg, Handlers{
		Users:    user.NewHandler(nil),
		Payments: payment.NewHandler(nil, nil, "", 100),
	}, nil)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:4000"
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestWebhookHasItsOwnRateLimit(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < publicBurst; i++ {
		w := serve(s, http.MethodPost, "/auth/login", []byte(`{}`))
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := serve(s, http.MethodPost, "/auth/login", []byte(`{}`))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// Same client IP, but the auth budget is exhausted.
	for i := 0; i < publicBurst*2; i++ {
		w := serve(s, http.MethodGet, "/api/payment-webhook", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "request %d", i)
	}
}

func TestWebhookBurstLimit(t *testing.T) {
	s := newTestServer(t)

	limited := 0
	for i := 0; i < webhookBurst+50; i++ {
		if serve(s, http.MethodGet, "/api/payment-webhook", nil).Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Positive(t, limited)
}

func TestSwaggerRoute(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, http.MethodGet, "/swagger/doc.json", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/payment-webhook")
}
