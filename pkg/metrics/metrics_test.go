package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.BookingCreated("group")
	c.BookingCreated("group")
	c.BookingRejected("FULL")
	c.NotificationFailed("publish")
	c.KafkaMessage("produce", "booking.created", errors.New("broker down"), time.Millisecond)

	if got := testutil.ToFloat64(c.bookingsCreated.WithLabelValues("group")); got != 2 {
		t.Errorf("expected 2 group bookings, got %v", got)
	}
	if got := testutil.ToFloat64(c.bookingsRejected.WithLabelValues("FULL")); got != 1 {
		t.Errorf("expected 1 FULL rejection, got %v", got)
	}
	if got := testutil.ToFloat64(c.kafkaMessages.WithLabelValues("produce", "booking.created", "error")); got != 1 {
		t.Errorf("expected 1 failed produce, got %v", got)
	}
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)
	c.EmailDispatched("sent")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `counsel_emails_total{outcome="sent"} 1`) {
		t.Errorf("metrics output missing email counter:\n%s", body)
	}
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.HTTPRequest("GET", "/health", 200, time.Millisecond)
}
