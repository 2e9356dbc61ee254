// Package main provides the journey API service entry point.
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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/oncocare/journey/internal/api/handlers"
	"github.com/oncocare/journey/internal/api/middleware"
	"github.com/oncocare/journey/internal/config"
	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/events"
	"github.com/oncocare/journey/internal/ingest"
	"github.com/oncocare/journey/internal/llm"
	"github.com/oncocare/journey/internal/observability/metrics"
	"github.com/oncocare/journey/internal/observability/tracing"
	"github.com/oncocare/journey/internal/summary"
	"github.com/oncocare/journey/pkg/circuitbreaker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	m := metrics.New(prometheus.DefaultRegisterer)

	// Tracing is optional; without an endpoint the otel API no-ops.
	if cfg.Tracing.Enabled() {
		provider, err := tracing.Init(context.Background(), tracing.Config{
			ServiceName:    "journey-api",
			ServiceVersion: "1.0.0",
			Environment:    cfg.Tracing.Environment,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		})
		if err != nil {
			logger.Fatal("failed to init tracing", zap.Error(err))
		}
		defer provider.Shutdown(context.Background())
	}

	// The roster must be fully loaded before any request is served.
	// A broken snapshot is fatal: never serve a half-loaded roster.
	roster, err := ingest.LoadRoster(cfg.Roster.Path, logger)
	if err != nil {
		logger.Fatal("roster load failed", zap.Error(err))
	}
	store := patient.NewStore(logger)
	store.ReplaceAll(roster)
	m.PatientsLoaded.Set(float64(store.Len()))

	var llmClient llm.Client
	if cfg.OpenAI.APIKey != "" {
		llmClient = llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		logger.Info("using OpenAI model", zap.String("model", cfg.OpenAI.Model))
	} else {
		llmClient = llm.Stub{}
		logger.Warn("OPENAI_API_KEY not set, using stub model client")
	}

	breaker := circuitbreaker.New(
		circuitbreaker.DefaultConfig("llm"), logger, m.CircuitBreakerState)
	summaryCfg := summary.DefaultConfig()
	summaryCfg.Timeout = cfg.Summary.Timeout
	summaryCfg.MaxTokens = cfg.Summary.MaxTokens
	summaries := summary.NewService(llmClient, breaker, summaryCfg, logger)

	// Optional alert stream.
	scanCtx, stopScan := context.WithCancel(context.Background())
	defer stopScan()
	if cfg.Kafka.Enabled() {
		publisher, err := events.NewPublisher(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer publisher.Close()
		if err := publisher.EnsureTopic(scanCtx); err != nil {
			logger.Fatal("failed to ensure alerts topic", zap.Error(err))
		}
		scanner := events.NewScanner(store, publisher, m, cfg.Kafka.ScanInterval, logger)
		go scanner.Run(scanCtx)
	}

	patientHandler := handlers.NewPatientHandler(store, m, logger)
	chatHandler := handlers.NewChatHandler(store, summaries, m, logger)
	dashboardHandler := handlers.NewDashboardHandler(store)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("journey-api"))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if store.Len() == 0 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/patients", patientHandler.Routes())
		r.Mount("/chat", chatHandler.Routes())
		r.Mount("/dashboard", dashboardHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		stopScan()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting journey API",
		zap.String("port", cfg.Server.Port),
		zap.Int("patients", store.Len()))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"journey-api","version":"1.0.0"}`)
}
