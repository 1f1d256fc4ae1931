// Package server wires the gateway routes and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/config"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/health"
	middleware "github.com/mohammed-shakir/adp-wfs-client/internal/core/middleware"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/router"
)

type Source interface {
	router.FeatureSource
	health.ReadinessChecker
}

// NewHandler builds the gateway routes. A nil metrics handler falls back to
// the default Prometheus registry.
func NewHandler(logger *slog.Logger, src Source, metrics http.Handler) http.Handler {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(src, 10*time.Second))
	r.Method(http.MethodGet, "/metrics", metrics)
	r.Get("/features", router.HandleFeatures(logger, src))
	r.Get("/capabilities", router.HandleCapabilities(logger, src))
	return r
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// responses stream whole datasets
		WriteTimeout: cfg.HTTPTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
