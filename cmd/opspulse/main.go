package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm/logger"

	"github.com/opspulse/opspulse/internal/alerts"
	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/events"
	"github.com/opspulse/opspulse/internal/handlers"
	"github.com/opspulse/opspulse/internal/middleware"
	"github.com/opspulse/opspulse/internal/observability"
	"github.com/opspulse/opspulse/internal/registry"
	"github.com/opspulse/opspulse/internal/scheduler"
	"github.com/opspulse/opspulse/internal/services"
	"github.com/opspulse/opspulse/internal/source"
)

// eventBufferSize is the per-subscriber buffer on the event bus. Slow
// websocket clients lose events past this rather than stalling publishers.
const eventBufferSize = 64

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting OpsPulse automation hub...")

	// Jobs file: per-job tuning, routing policy, and the demo inventory
	jobsCfg, err := config.LoadJobsConfig(cfg.JobsFile)
	if err != nil {
		log.Fatalf("Failed to load jobs configuration: %v", err)
	}

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	db := database.GetDB()

	// Reconcile the built-in job definitions into job rows
	reg, err := registry.BuiltIn(jobsCfg)
	if err != nil {
		log.Fatalf("Failed to build job registry: %v", err)
	}
	if err := reg.Sync(db, time.Now()); err != nil {
		log.Fatalf("Failed to sync job registry: %v", err)
	}
	log.Printf("Job registry synced: %v", reg.Names())

	// Event bus feeds the websocket stream; the router and scheduler publish
	bus := events.NewBus(eventBufferSize)

	// Snapshot source: host telemetry plus the static inventory
	src := source.NewLocalSource(jobsCfg.Inventory)

	// Prometheus metrics (default registry, exposed at /metrics)
	metrics := observability.NewMetrics(nil)

	// Alert router with the Slack pager behind it
	notifier := alerts.NewSlackNotifier(db, metrics)
	router := alerts.NewRouter(jobsCfg.Routing, notifier, bus)

	// Scheduler: poll loop, claim CAS, worker pool
	sched := scheduler.New(db, reg, src, router, bus, metrics, scheduler.Options{
		PollInterval:    cfg.PollInterval,
		Concurrency:     cfg.WorkerConcurrency,
		HandlerTimeout:  cfg.HandlerTimeout,
		ShutdownGrace:   cfg.ShutdownGrace,
		MetricRetention: cfg.MetricRetention,
	})
	sched.Start()
	log.Printf("Scheduler started (%d workers, polling every %s)", cfg.WorkerConcurrency, cfg.PollInterval)

	// Initialize services
	jobService := services.NewJobService(db, sched)
	alertService := services.NewAlertService(db, router, bus)
	recommendationService := services.NewRecommendationService(db, bus)
	dashboardService := services.NewDashboardService(db)

	// Initialize handlers
	httpHandler := handlers.NewHTTPHandler()
	apiHandler := handlers.NewAPIHandler(db, jobService, alertService, recommendationService, dashboardService)
	eventsHandler := handlers.NewEventsHandler(bus)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	apiHandler.SetupRoutes(mux)
	eventsHandler.SetupRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Wrap all routes with CORS, then request IDs
	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	handler := corsMiddleware.Wrap(middleware.RequestIDMiddleware(mux))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)
	log.Printf("Event stream: ws://localhost:%d/ws/events", cfg.HTTPPort)
	log.Printf("Prometheus metrics: http://localhost:%d/metrics", cfg.HTTPPort)

	// Block until shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")

	// Stop dispatching first; in-flight runs get the shutdown grace
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
