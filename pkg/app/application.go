package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"counsel/pkg/config"
	"counsel/pkg/contracts"
	"counsel/pkg/metrics"
	"counsel/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
)

const IdempotencyHeader = "Idempotency-Key"

type Application struct {
	cfg              *config.Config
	recorder         metrics.Recorder
	gatherer         prometheus.Gatherer
	server           *http.Server
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.RateLimiter
	handler          http.Handler
	onShutdown       []func()
}

func NewApplication(cfg *config.Config, recorder metrics.Recorder, gatherer prometheus.Gatherer) *Application {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Application{
		cfg:      cfg,
		recorder: recorder,
		gatherer: gatherer,
	}
}

// SetApp wires the health, metrics and application routes behind their
// middleware stacks.
func (a *Application) SetApp(verifier middleware.TokenVerifier, handlers ...contracts.Handler) {
	health := a.healthHandler()
	appHandler := a.appHandler(verifier, handlers)

	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/ready", health)
	if a.gatherer != nil {
		mux.Handle("/metrics", metrics.Handler(a.gatherer))
	}
	mux.Handle("/", appHandler)
	a.handler = mux

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the fully wired handler. SetApp must be called first.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// OnShutdown registers fn to run after the server has stopped accepting
// requests, in registration order.
func (a *Application) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *Application) healthHandler() http.Handler {
	router := httprouter.New()
	NewHealthHandler(a.cfg.Client, a.cfg.Log).RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.Recovery(a.cfg.Log)(h)
	h = middleware.RequestLogging(a.cfg.Log, a.recorder)(h)
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
	return h
}

func (a *Application) appHandler(verifier middleware.TokenVerifier, handlers []contracts.Handler) http.Handler {
	router := httprouter.New()
	for _, handler := range handlers {
		handler.RegisterRoutes(router)
	}

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, a.cfg.Log)

	// Wrapped inside out. The handler goroutine started by RequestTimeout
	// needs its own Recovery.
	var h http.Handler = router
	h = middleware.Idempotency(a.idempotencyStore, IdempotencyHeader)(h)
	h = middleware.RateLimit(a.rateLimiter)(h)
	h = middleware.Authenticate(verifier, a.cfg.Log)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxBodySize(int64(a.cfg.MaxRequestSize))(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	h = middleware.RequestTimeout(a.cfg.RequestTimeout)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	h = middleware.RequestLogging(a.cfg.Log, a.recorder)(h)
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
	return h
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	for _, fn := range a.onShutdown {
		fn()
	}
	a.cfg.GracefulShutdown()

	a.cfg.Log.Info("Server stopped gracefully")
}
