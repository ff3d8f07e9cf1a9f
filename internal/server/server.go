package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nholik/status-sentinel/internal/healthcheck"
	"github.com/nholik/status-sentinel/internal/metrics"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Options selects which endpoints are served and where.
// A zero port disables the corresponding server; equal ports share one listener.
type Options struct {
	HealthPort   int
	MetricsPort  int
	PollInterval time.Duration
}

// Group tracks the HTTP servers started by Start.
type Group struct {
	wg sync.WaitGroup
}

// Wait blocks until every started server has shut down.
func (g *Group) Wait() {
	if g == nil {
		return
	}
	g.wg.Wait()
}

// Start launches health and metrics HTTP servers as configured. Servers stop when ctx is cancelled.
func Start(ctx context.Context, logger zerolog.Logger, opts Options, tracker *healthcheck.Tracker, collector *metrics.Metrics) *Group {
	group := &Group{}
	if opts.HealthPort == 0 && opts.MetricsPort == 0 {
		return group
	}

	if opts.HealthPort > 0 && opts.HealthPort == opts.MetricsPort {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, tracker, opts.PollInterval)
		registerMetricsRoute(mux, collector)
		group.start(ctx, logger, mux, opts.HealthPort, "health/metrics")
		return group
	}

	if opts.HealthPort > 0 {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, tracker, opts.PollInterval)
		group.start(ctx, logger, mux, opts.HealthPort, "health")
	}

	if opts.MetricsPort > 0 {
		mux := http.NewServeMux()
		registerMetricsRoute(mux, collector)
		group.start(ctx, logger, mux, opts.MetricsPort, "metrics")
	}
	return group
}

// NewMux returns a single mux carrying every endpoint.
func NewMux(tracker *healthcheck.Tracker, collector *metrics.Metrics, pollInterval time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthRoutes(mux, tracker, pollInterval)
	registerMetricsRoute(mux, collector)
	return mux
}

func registerHealthRoutes(mux *http.ServeMux, tracker *healthcheck.Tracker, pollInterval time.Duration) {
	mux.HandleFunc("GET /healthz", healthcheck.HealthHandler(tracker, pollInterval))
	mux.HandleFunc("GET /readyz", healthcheck.ReadyHandler(tracker))
}

func registerMetricsRoute(mux *http.ServeMux, collector *metrics.Metrics) {
	if collector == nil {
		return
	}
	mux.Handle("GET /metrics", collector.Handler())
}

func (g *Group) start(ctx context.Context, logger zerolog.Logger, handler http.Handler, port int, label string) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger.With().Str("server", label).Int("port", port).Logger()

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		log.Info().Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	go func() {
		defer g.wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown failed")
		}
	}()
}
