package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"counsel/pkg/auth"
	"counsel/pkg/logger"
	"counsel/pkg/metrics"

	"github.com/google/uuid"
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

func okHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	})
}

func TestAuthenticate(t *testing.T) {
	log := logger.Discard()
	alice := &auth.Identity{Subject: "alice"}

	t.Run("missing header continues anonymously", func(t *testing.T) {
		var seen *auth.Identity
		h := Authenticate(stubVerifier{identity: alice}, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = auth.FromContext(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, seen)
	})

	t.Run("valid token sets identity", func(t *testing.T) {
		var seen *auth.Identity
		h := Authenticate(stubVerifier{identity: alice}, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = auth.FromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Same(t, alice, seen)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		var calls int32
		h := Authenticate(stubVerifier{err: errors.New("bad")}, log)(okHandler(&calls))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
		assert.Zero(t, calls)
	})

	t.Run("non bearer scheme is rejected", func(t *testing.T) {
		var calls int32
		h := Authenticate(stubVerifier{identity: alice}, log)(okHandler(&calls))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, calls)
	})
}

func TestRateLimit_PerRequester(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, logger.Discard())
	defer rl.Stop()

	var calls int32
	h := RateLimit(rl)(okHandler(&calls))

	send := func(subject string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Subject: subject}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send("alice"))
	assert.Equal(t, http.StatusCreated, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))
	assert.Equal(t, http.StatusCreated, send("bob"))
}

func TestIdempotency_ReplaysPerRequester(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(okHandler(&calls))

	send := func(subject string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyHeader, "key-1")
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Subject: subject}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("alice")
	second := send("alice")
	other := send("bob")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.EqualValues(t, 2, calls, "alice's retry must be replayed, bob's request must run")
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard(), metrics.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	fixed := uuid.NewString()
	req.Header.Set(RequestIDHeader, fixed)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, fixed, seen)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/api/v1/bookings/id/:id", routeLabel("/api/v1/bookings/id/65f1a2b3c4d5e6f7a8b9c0d1"))
	assert.Equal(t, "/api/v1/sessions/id/:id/token", routeLabel("/api/v1/sessions/id/65f1a2b3c4d5e6f7a8b9c0d1/token"))
	assert.Equal(t, "/health", routeLabel("/health"))
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestContentTypeValidation(t *testing.T) {
	var calls int32
	h := ContentTypeValidation(logger.Discard())(okHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/x/token", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "TIMEOUT")
	assert.NotContains(t, rec.Body.String(), "late")
}
