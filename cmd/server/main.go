package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrosync-server/internal/config"
	"agrosync-server/internal/handler"
	"agrosync-server/internal/middleware"
	"agrosync-server/internal/repository"
	"agrosync-server/internal/service"

	_ "github.com/lib/pq"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	db, err := repository.Open(cfg.Database.DSN(), cfg.Database.AppRole)
	if err != nil {
		logger.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(ctx, cfg.Database.AppRolePassword); err != nil {
		cancel()
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	cancel()

	eventRepo := repository.NewEventRepository()
	productRepo := repository.NewProductRepository()
	paymentRepo := repository.NewPaymentRepository()
	conflictRepo := repository.NewConflictRepository()
	clockRepo := repository.NewClockRepository()

	syncService := service.NewSyncService(
		db, eventRepo, productRepo, paymentRepo, conflictRepo, clockRepo,
		service.DefaultRules(),
		service.SyncOptions{
			ConflictWindow:   cfg.Sync.ConflictWindow,
			LamportThreshold: cfg.Sync.LamportThreshold,
			DefaultPageSize:  cfg.Sync.PullPageSize,
			MaxPageSize:      cfg.Sync.PullMaxPageSize,
		},
	)
	conflictService := service.NewConflictService(db, conflictRepo)

	syncHandler := handler.NewSyncHandler(syncService, conflictService)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Every route below requires a tenant identifier; health and root stay
	// outside the guard.
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.TenantMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/sync/push", syncHandler.Push).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/pull", syncHandler.Pull).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/conflicts", syncHandler.ListConflicts).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sync/conflicts/{id}/resolve", syncHandler.ResolveConflict).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Starting AgroSync Server on %s (env: %s)", addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"agrosync-server"}`))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"AgroSync Server API","version":"1.0.0","endpoints":{"/api/v1/sync/push":"POST","/api/v1/sync/pull":"POST","/api/v1/sync/conflicts":"GET","/api/v1/sync/conflicts/{id}/resolve":"POST"}}`))
}
