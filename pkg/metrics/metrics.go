// Package metrics collects Prometheus metrics for the booking services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "counsel"

// Recorder is what services and middleware record through.
type Recorder interface {
	BookingCreated(kind string)
	BookingRejected(code string)
	BookingStatusChanged(status string)
	NotificationFailed(reason string)
	EmailDispatched(outcome string)
	KafkaMessage(direction, topic string, err error, d time.Duration)
	HTTPRequest(method, route string, status int, d time.Duration)
}

type Collector struct {
	bookingsCreated  *prometheus.CounterVec
	bookingsRejected *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	notifyFailures   *prometheus.CounterVec
	emails           *prometheus.CounterVec
	kafkaMessages    *prometheus.CounterVec
	kafkaLatency     *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created, by kind (group or individual).",
		}, []string{"kind"}),
		bookingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_rejected_total",
			Help:      "Booking attempts rejected, by error code.",
		}, []string{"code"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_changes_total",
			Help:      "Booking status transitions, by target status.",
		}, []string{"status"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Booking notifications that could not be published.",
		}, []string{"reason"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Confirmation emails, by outcome.",
		}, []string{"outcome"}),
		kafkaMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_total",
			Help:      "Kafka messages produced or consumed.",
		}, []string{"direction", "topic", "result"}),
		kafkaLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_message_duration_seconds",
			Help:      "Time spent producing or handling a Kafka message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction", "topic"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.bookingsCreated,
		c.bookingsRejected,
		c.statusChanges,
		c.notifyFailures,
		c.emails,
		c.kafkaMessages,
		c.kafkaLatency,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// NewRegistry returns a registry with the Go and process collectors installed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (c *Collector) BookingCreated(kind string) {
	c.bookingsCreated.WithLabelValues(kind).Inc()
}

func (c *Collector) BookingRejected(code string) {
	c.bookingsRejected.WithLabelValues(code).Inc()
}

func (c *Collector) BookingStatusChanged(status string) {
	c.statusChanges.WithLabelValues(status).Inc()
}

func (c *Collector) NotificationFailed(reason string) {
	c.notifyFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) EmailDispatched(outcome string) {
	c.emails.WithLabelValues(outcome).Inc()
}

func (c *Collector) KafkaMessage(direction, topic string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.kafkaMessages.WithLabelValues(direction, topic, result).Inc()
	c.kafkaLatency.WithLabelValues(direction, topic).Observe(d.Seconds())
}

func (c *Collector) HTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used where metrics are not wired, mostly tests.
type Nop struct{}

func (Nop) BookingCreated(string) {}
func (Nop) BookingRejected(string) {}
func (Nop) BookingStatusChanged(string) {}
func (Nop) NotificationFailed(string) {}
func (Nop) EmailDispatched(string) {}
func (Nop) KafkaMessage(string, string, error, time.Duration) {}
func (Nop) HTTPRequest(string, string, int, time.Duration) {}
