package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"counsel/pkg/config"
	"counsel/pkg/logger"
	"counsel/pkg/metrics"
	"counsel/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomeRecorder struct {
	metrics.Nop
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) EmailDispatched(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newDispatcher(t *testing.T, handler http.HandlerFunc) (*ResendDispatcher, *outcomeRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rec := &outcomeRecorder{}
	d := NewResendDispatcher(&config.Config{
		EmailAPIURL:     srv.URL,
		EmailAPIKey:     "re_test",
		EmailFrom:       "Counsel <noreply@example.com>",
		EmailRateLimit:  1000,
		EmailAPITimeout: time.Second,
		Log:             logger.Discard(),
	}, rec)
	return d, rec
}

func TestResendDispatcher_Send(t *testing.T) {
	var got sendRequest
	var gotAuth string
	d, rec := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendPath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	})

	err := d.Send(context.Background(), Email{To: "s@example.com", Subject: "Hi", HTML: "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", gotAuth)
	assert.Equal(t, []string{"s@example.com"}, got.To)
	assert.Equal(t, "Counsel <noreply@example.com>", got.From)
	assert.Equal(t, []string{"sent"}, rec.outcomes)
}

func TestResendDispatcher_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		outcome   string
	}{
		{http.StatusTooManyRequests, true, "retryable_error"},
		{http.StatusBadGateway, true, "retryable_error"},
		{http.StatusUnprocessableEntity, false, "rejected"},
		{http.StatusUnauthorized, false, "rejected"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			d, rec := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"name":"error","message":"provider said no"}`))
			})

			err := d.Send(context.Background(), Email{To: "s@example.com"})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Contains(t, err.Error(), "provider said no")
			assert.Equal(t, []string{tt.outcome}, rec.outcomes)
		})
	}
}

func TestResendDispatcher_TransportErrorIsRetryable(t *testing.T) {
	d, _ := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {})
	d.client.BaseURL = "http://127.0.0.1:1"

	err := d.Send(context.Background(), Email{To: "s@example.com"})
	assert.True(t, IsRetryable(err))
}

func TestRenderConfirmation(t *testing.T) {
	event := &model.BookingEvent{
		BookingID:    "b1",
		SessionTitle: "Resume <i>clinic</i>",
		SessionType:  "group_counselling",
		Status:       model.BookingConfirmed,
		ScheduledAt:  time.Date(2030, 3, 4, 15, 30, 0, 0, time.UTC),
		Duration:     45,
		Notes:        "<script>alert('x')</script>Bring a printed CV\nand questions",
		StudentName:  "Sam <b>Lee</b>",
		StudentEmail: "sam@example.com",
		ExpertName:   "Grace Hopper",
	}

	email, err := RenderConfirmation(event)
	require.NoError(t, err)

	assert.Equal(t, "sam@example.com", email.To)
	assert.Equal(t, confirmationSubject, email.Subject)
	assert.Contains(t, email.HTML, "Hello Sam Lee,")
	assert.Contains(t, email.HTML, "Resume clinic")
	assert.Contains(t, email.HTML, "GROUP COUNSELLING")
	assert.Contains(t, email.HTML, "Monday, March 4, 2030")
	assert.Contains(t, email.HTML, "15:30 UTC")
	assert.Contains(t, email.HTML, "45 minutes")
	assert.Contains(t, email.HTML, "Bring a printed CV<br>and questions")
	assert.NotContains(t, email.HTML, "<script>")
	assert.False(t, strings.Contains(email.HTML, "alert"), "script content must be dropped")
}

func TestRenderConfirmation_EscapesText(t *testing.T) {
	email, err := RenderConfirmation(&model.BookingEvent{
		StudentName: "Tom & Jerry",
		SessionType: "career",
		Status:      model.BookingPending,
		Notes:       "1 < 2",
	})
	require.NoError(t, err)

	assert.Contains(t, email.HTML, "Tom &amp; Jerry")
	assert.Contains(t, email.HTML, "1 &lt; 2")
	assert.Contains(t, email.HTML, "has been requested")
}
