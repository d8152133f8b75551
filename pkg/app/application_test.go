package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"counsel/pkg/auth"
	"counsel/pkg/client"
	"counsel/pkg/config"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"
	"counsel/pkg/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	identity *auth.Identity
	err      error
}

func (s stubVerifier) Verify(string) (*auth.Identity, error) {
	return s.identity, s.err
}

type whoamiHandler struct{}

func (whoamiHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		identity := auth.FromContext(r.Context())
		if identity == nil {
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"subject": ""})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"subject": identity.Subject})
	})
	router.GET("/api/v1/panic", func(http.ResponseWriter, *http.Request, httprouter.Params) {
		panic("boom")
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
}

func newTestApp(t *testing.T, verifier stubVerifier) http.Handler {
	t.Helper()
	reg := metrics.NewRegistry()
	a := NewApplication(testConfig(), metrics.NewCollector(reg), reg)
	a.SetApp(verifier, whoamiHandler{})
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a.Handler()
}

func TestApplication_HealthAndReady(t *testing.T) {
	h := newTestApp(t, stubVerifier{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// no Mongo client is connected
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestApplication_Metrics(t *testing.T) {
	h := newTestApp(t, stubVerifier{})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "counsel_http_requests_total")
}

func TestApplication_Authentication(t *testing.T) {
	t.Run("valid token sets identity", func(t *testing.T) {
		h := newTestApp(t, stubVerifier{identity: &auth.Identity{Subject: "user_1"}})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "user_1")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		h := newTestApp(t, stubVerifier{err: errors.New("expired")})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestApplication_RecoversHandlerPanic(t *testing.T) {
	h := newTestApp(t, stubVerifier{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
