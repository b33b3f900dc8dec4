package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/Shoaibzaak/visa-docverify/internal/adapters/http"
	"github.com/Shoaibzaak/visa-docverify/internal/bootstrap"
	"github.com/Shoaibzaak/visa-docverify/internal/config"
	"github.com/Shoaibzaak/visa-docverify/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, "docverify-api", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Intake:   app.Intake,
		Registry: app.Registry,
		Editor:   app.Registry,
		Previews: app.Registry,
		Analysis: app.Coordinator,
		Notices:  app.Notices,
		Metrics:  app.Metrics,
		Breakers: app.Executor.States,
		Logger:   logger,
	}).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.FraudAPITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "fraud_api_url", cfg.FraudAPIURL, "storage_backend", cfg.StorageBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Warn("app_close_failed", "error", err)
	}
}
