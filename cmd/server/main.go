package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/bbdob/internal/benchmark"
	"github.com/copyleftdev/bbdob/internal/config"
	apierrors "github.com/copyleftdev/bbdob/internal/errors"
	"github.com/copyleftdev/bbdob/internal/logging"
	"github.com/copyleftdev/bbdob/internal/metrics"
	"github.com/copyleftdev/bbdob/internal/objective/nasbench"
	"github.com/copyleftdev/bbdob/internal/server"
)

func main() {
	start := time.Now()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use standard logger as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize base logger
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "bbdob-server",
		"env":     cfg.Environment,
	})

	ctx := context.Background()

	// Benchmark objectives
	presets := benchmark.DefaultPresets()
	if cfg.Benchmark.PresetsFile != "" {
		presets, err = benchmark.LoadPresetsFile(cfg.Benchmark.PresetsFile)
		if err != nil {
			serviceLogger.Fatal("Failed to load presets", map[string]interface{}{"error": err})
		}
	}
	for i := range presets {
		if presets[i].Kind == benchmark.KindNasBench && presets[i].Epochs == 0 {
			presets[i].Epochs = cfg.NasBench.Epochs
		}
	}

	dataset, closeDataset, err := nasbench.Open(ctx, cfg.NasBench.DB, cfg.NasBench.JSONL, serviceLogger.Zap())
	if err != nil {
		serviceLogger.Fatal("Failed to open nasbench dataset", map[string]interface{}{"error": err})
	}
	defer closeDataset()

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		serviceLogger.Fatal("Failed to register metrics", map[string]interface{}{"error": err})
	}
	clock := &nasbench.Clock{}
	if err := metrics.WatchClock(prometheus.DefaultRegisterer, clock); err != nil {
		serviceLogger.Fatal("Failed to register metrics", map[string]interface{}{"error": err})
	}

	registry, err := benchmark.Build(presets, benchmark.Deps{
		Dataset:    dataset,
		Clock:      clock,
		Logger:     serviceLogger.Zap(),
		Instrument: collector.Instrument,
	})
	if err != nil {
		serviceLogger.Fatal("Failed to build objectives", map[string]interface{}{"error": err})
	}
	serviceLogger.Info("Objectives registered", map[string]interface{}{
		"objectives": registry.Names(),
	})

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(apierrors.ErrorHandler(serviceLogger))
	r.Use(apierrors.RecoveryMiddleware(serviceLogger))
	r.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	// Add health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Add metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	srv := server.NewServer(cfg, serviceLogger, registry)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start HTTP server
	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err})
	}

	if err := srv.Close(); err != nil {
		serviceLogger.Error("error closing server resources", map[string]interface{}{"error": err})
	}

	serviceLogger.Info("Server stopped", map[string]interface{}{
		"nasbench_training_seconds": clock.Total(),
		"uptime":                    time.Since(start).String(),
	})
}
