/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize the zap logger
  3. Open the SQLite persister and load the snapshot into the state store
  4. Apply SETTINGS_FILE, if set, as the payroll settings
  5. Configure the HTTP router and start the maintenance scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: payroll.db)
           Use ":memory:" for an in-memory database
  -settings  Payroll settings YAML/JSON file (SETTINGS_FILE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the maintenance scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Flush the snapshot one last time and close the database
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run with in-memory database and custom payroll rules
  ./server -db=":memory:" -settings=./payroll.yaml

SEE ALSO:
  - config/config.go: environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/state"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.SettingsFile, "settings", cfg.SettingsFile, "Payroll settings YAML/JSON file")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Initialize persistence and state
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	store, err := state.New(ctx, db, state.WithSaveErrorHandler(func(err error) {
		logger.Error("failed to save snapshot", zap.Error(err))
	}))
	if err != nil {
		logger.Fatal("failed to load snapshot", zap.Error(err))
	}

	if cfg.SettingsFile != "" {
		if err := applySettingsFile(ctx, store, cfg.SettingsFile); err != nil {
			logger.Fatal("failed to apply settings file", zap.String("file", cfg.SettingsFile), zap.Error(err))
		}
		logger.Info("payroll settings loaded", zap.String("file", cfg.SettingsFile))
	}

	// Initialize handler and scheduler
	handler := api.NewHandler(store, logger)
	scheduler := api.NewMaintenanceScheduler(store, logger)
	scheduler.Interval = cfg.MaintenanceInterval
	handler.Scheduler = scheduler

	router := api.NewRouter(handler, cfg.CORSOrigins...)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler.Start()

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("final snapshot flush failed", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// applySettingsFile replaces the payroll settings with the file's document
// laid over the defaults.
func applySettingsFile(ctx context.Context, store *state.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	settings, err := factory.ParseSettings(data)
	if err != nil {
		return err
	}
	_, err = store.Dispatch(ctx, state.UpdateSettings{Settings: settings})
	return err
}
