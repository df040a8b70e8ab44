package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tripexpense/internal/api"
	"tripexpense/internal/auth"
	"tripexpense/internal/charts"
	"tripexpense/internal/config"
	apphttp "tripexpense/internal/http"
	applog "tripexpense/internal/log"
	"tripexpense/internal/session"
	"tripexpense/internal/store"
)

func main() {
	// Local overrides only; absence of a .env file is not an error.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	// Active-trip persistence backend (default: memory).
	var tripStore store.ActiveTripStore
	switch cfg.StateStore {
	case "sqlite":
		st, err := store.NewSQLite(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open sqlite state store",
				applog.FieldError, err,
				"db_path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer st.Close()
		tripStore = st
		logger.Info("Initialized sqlite state store", "db_path", cfg.SQLiteDBPath)
	default:
		tripStore = store.NewMemory()
		logger.Info("Initialized memory state store")
	}

	sessions := auth.NewCached(&auth.EnvProvider{
		Token:       cfg.SessionToken,
		TokenFile:   cfg.SessionTokenFile,
		DisplayName: cfg.SessionDisplayName,
	}, cfg.SessionCacheTTL)

	client, err := api.New(cfg.APIBaseURL, cfg.APITimeout, sessions,
		logger.WithComponent(applog.ComponentAPI))
	if err != nil {
		logger.Error("Failed to build API client", applog.FieldError, err)
		os.Exit(1)
	}

	mgr, err := session.NewManager(context.Background(), client, tripStore,
		logger.WithComponent(applog.ComponentSession))
	if err != nil {
		logger.Error("Failed to initialize trip session", applog.FieldError, err)
		os.Exit(1)
	}

	// Warm the trip list before serving; a failed first fetch is not
	// fatal, the UI reports loading state and retries on interaction.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.APITimeout)
	if err := mgr.Refresh(startupCtx); err != nil {
		logger.Warn("Initial trip refresh failed", applog.FieldError, err)
	}
	startupCancel()

	srv := apphttp.NewServer(":"+cfg.Port, mgr, client, sessions,
		charts.NewGenerator(), logger.WithComponent(applog.ComponentHTTP))

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting tripexpense server",
		"port", cfg.Port,
		"api_base_url", cfg.APIBaseURL,
		"state_store", cfg.StateStore)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
