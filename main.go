package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/notebook-be/internal/api"
	"github.com/isdelr/notebook-be/internal/config"
	"github.com/isdelr/notebook-be/internal/execution"
	"github.com/isdelr/notebook-be/internal/logger"
	"github.com/isdelr/notebook-be/internal/monitoring"
	"github.com/isdelr/notebook-be/internal/services"
	"github.com/isdelr/notebook-be/internal/store"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Set up persistence
	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
	}
	defer st.Close()

	// Set up services
	userService := services.NewUserService(st, time.Now)
	sessionService := services.NewSessionService(st, time.Now)
	notebookService := services.NewNotebookService(st, time.Now)
	backupService := services.NewBackupService(st, cfg.BackupPath, cfg.BackupRetention, time.Now)

	if _, err := notebookService.MigrateProfiles(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate user profiles")
	}

	piston := execution.NewPistonClient(cfg.PistonURL, cfg.ExecHTTPTimeout)
	executionService := execution.NewService(
		piston,
		execution.NewRuntimeCache(piston, cfg.RuntimeCacheTTL, time.Now),
		execution.NewJSEvaluator(cfg.JSTimeout),
	)

	// Set up and run the background backup scheduler
	var scheduler *monitoring.Scheduler
	if cfg.BackupSchedule != "" {
		scheduler, err = monitoring.NewScheduler(backupService, cfg.BackupSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up backup scheduler")
		}
		go scheduler.Run()
	}

	// Set up router
	router := api.NewRouter(cfg, api.Dependencies{
		Store:     st,
		Users:     userService,
		Sessions:  sessionService,
		Notebooks: notebookService,
		Execution: executionService,
		Stats:     monitoring.NewSystemMonitor(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.ExecHTTPTimeout + 15*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("store", st.Backend()).Str("env", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
