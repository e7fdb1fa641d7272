package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/advisory"
	"github.com/careflow/careflow-backend/internal/assessment/batch"
	"github.com/careflow/careflow-backend/internal/assessment/consumers"
	"github.com/careflow/careflow-backend/internal/assessment/engine"
	"github.com/careflow/careflow-backend/internal/assessment/events"
	"github.com/careflow/careflow-backend/internal/assessment/handler"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/internal/assessment/scheduler"
	"github.com/careflow/careflow-backend/internal/assessment/service"
	"github.com/careflow/careflow-backend/pkg/config"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/messaging"
	"github.com/careflow/careflow-backend/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "assessment-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Assessment Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	// Initialize event publisher
	publisher, err := events.NewAssessmentEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Engines
	var advisor engine.AdvisoryService
	if cfg.Advisory.Enabled() {
		client, err := advisory.NewClient(cfg.Advisory)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create advisory client")
		}
		advisor = client
		log.Info().Str("model", cfg.Advisory.Model).Msg("advisory risk scoring enabled")
	} else {
		log.Info().Msg("advisory risk scoring disabled, using deterministic scoring only")
	}

	engines := service.Engines{
		Risk: engine.NewRiskEngine(advisor,
			engine.WithAdvisoryTimeout(cfg.Advisory.Timeout),
			engine.WithRiskLogger(log.WithComponent("risk-engine")),
			engine.WithRiskMetrics(m),
		),
		Performance: engine.NewPerformanceEngine(),
		Fraud:       engine.NewFraudDetector(),
		Payroll:     engine.NewPayrollCalculator(),
	}

	// Initialize repositories
	stores := service.Stores{
		Patients:   repository.NewPatientRepository(db),
		Caregivers: repository.NewCaregiverRepository(db),
		Visits:     repository.NewVisitRepository(db),
		Incidents:  repository.NewIncidentRepository(db),
		Payroll:    repository.NewPayrollRepository(db),
		Audit:      repository.NewAuditRepository(db),
	}

	// Initialize service
	runner := batch.NewRunner(cfg.Batch.Concurrency, log, m)
	assessmentService := service.NewAssessmentService(stores, engines, publisher, runner, db, service.Options{
		Lookback:  cfg.Assessment.Lookback(),
		LateGrace: cfg.Assessment.LateGrace,
	}, log, m)

	// Initialize handlers
	assessmentHandler := handler.NewAssessmentHandler(assessmentService, log)
	webhookHandler := handler.NewWebhookHandler(assessmentService, cfg.Webhook.Secret, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start trigger consumer
	triggerConsumer, err := consumers.NewTriggerConsumer(rmq, assessmentService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create trigger consumer")
	}
	if err := triggerConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start trigger consumer")
	}

	// Start scheduler
	sched, err := scheduler.New(cfg.Scheduler, assessmentService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	sched.Start()

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Organization-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API, webhook and metrics routes
	handler.Mount(r, assessmentHandler, webhookHandler, registry)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := webhookHandler.Wait(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("background webhook runs did not finish")
	}

	log.Info().Msg("server stopped")
}
