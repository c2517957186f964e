// Package app wires configuration, storage, the harvest pipeline, and the
// HTTP surface into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"order-recon-go/config"
	"order-recon-go/internal/database"
	"order-recon-go/internal/handlers"
	"order-recon-go/internal/harvester"
	"order-recon-go/internal/mailbox"
	"order-recon-go/internal/metrics"
	"order-recon-go/internal/reconciler"
	"order-recon-go/internal/repository"
	"order-recon-go/internal/scheduler"
	"order-recon-go/internal/server"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Order Reconciliation Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()
	repo := repository.New(dbConn)

	guard := mailbox.NewTokenGuard(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.TokenURL)
	newClient := func(ctx context.Context, accessToken string) (harvester.MailClient, error) {
		return mailbox.NewClient(ctx, accessToken)
	}

	harv := harvester.New(guard, repo, newClient, cfg.Harvest.FromFilter)
	engine := reconciler.New(repo)
	sched := scheduler.NewScheduler(cfg, harv, m)

	h := handlers.NewHandlers(dbConn, repo, harv, engine, sched, m, cfg)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
