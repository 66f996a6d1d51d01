package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrovane/golang_services/internal/bulkops/app"
	"github.com/agrovane/golang_services/internal/bulkops/domain"
	"github.com/agrovane/golang_services/internal/bulkops/excel"
	"github.com/agrovane/golang_services/internal/bulkops/middleware"
	pgrepo "github.com/agrovane/golang_services/internal/bulkops/repository/postgres"
	httptransport "github.com/agrovane/golang_services/internal/bulkops/transport/http"
	"github.com/agrovane/golang_services/internal/platform/config"
	"github.com/agrovane/golang_services/internal/platform/database"
	"github.com/agrovane/golang_services/internal/platform/logger"
	"github.com/agrovane/golang_services/internal/platform/messagebroker"
)

const serviceName = "bulkops_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Bulk operations service starting...", "port", cfg.ServerPort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Connected to NATS")

	jobRepo := pgrepo.NewPgBulkJobRepository(dbPool, appLogger)
	codePoolRepo := pgrepo.NewPgCodePoolRepository(dbPool, appLogger)
	reader := excel.NewReader(appLogger)

	subjects := app.QueueSubjects{
		domain.KindCodeDistribution: cfg.QueueCodeDistribution,
		domain.KindDealerInvitation: cfg.QueueDealerInvitation,
		domain.KindFarmerInvitation: cfg.QueueFarmerInvitation,
	}
	bulkJobService := app.NewBulkJobService(jobRepo, codePoolRepo, reader, natsClient, subjects, appLogger)
	bulkJobHandler := httptransport.NewBulkJobHandler(bulkJobService, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": serviceName})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.AuthMiddleware(cfg.JWTAccessSecret, appLogger))
		bulkJobHandler.RegisterRoutes(api)
	})
	r.Route("/internal", func(internal chi.Router) {
		internal.Use(middleware.WorkerAuthMiddleware(cfg.WorkerAPIToken, appLogger))
		bulkJobHandler.RegisterWorkerRoutes(internal)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown error", "error", err)
	}
	appLogger.Info("Bulk operations service stopped")
}
