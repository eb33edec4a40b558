package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"

	"docverify/internal/ocr"
	"docverify/internal/ocr/tesseract"
	"docverify/internal/platform/config"
	"docverify/internal/platform/httpserver"
	"docverify/internal/platform/logger"
	"docverify/internal/platform/metrics"
	"docverify/internal/platform/middleware"
	"docverify/internal/scan"
	scanhandler "docverify/internal/scan/handler"
	scanmetrics "docverify/internal/scan/metrics"
	"docverify/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Scanning logic lives in internal/scan.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log, err := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("invalid logger configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := ocr.NewRegistry()
	if err := registry.Register(tesseract.New(tesseract.WithLanguages(cfg.OCR.Languages...))); err != nil {
		log.Error("register ocr engine", "error", err)
		os.Exit(1)
	}
	engine, err := registry.Select(ctx, cfg.OCR.Engine)
	if err != nil {
		log.Error("no usable ocr engine", "preference", cfg.OCR.Engine, "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	opts := append(cfg.ScanOptions(log, scanmetrics.New(m.Registry)), scan.WithTracer(otel.Tracer("docverify/cmd/server")))
	svc, err := scan.New(engine, opts...)
	if err != nil {
		log.Error("build scan service", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(m))
	router.Handle("/metrics", m.Handler())
	router.Get("/healthz", healthz(engine))
	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(5 * time.Minute))
		scanhandler.New(svc, log, cfg.MaxBytes()).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting docverify", "addr", cfg.Server.Addr, "engine", engine.Name())

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("docverify stopped")
}

func healthz(engine ocr.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc, ok := engine.(ocr.HealthChecker); ok {
			if err := hc.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"engine": engine.Name(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": engine.Name()})
	}
}
