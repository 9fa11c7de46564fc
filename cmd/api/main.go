package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dvloznov/lifeos/internal/api/handlers"
	"github.com/dvloznov/lifeos/internal/app"
	"github.com/dvloznov/lifeos/internal/config"
	"github.com/dvloznov/lifeos/internal/jobs/inmemory"
	"github.com/dvloznov/lifeos/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: ./lifeos.yaml or $HOME/.lifeos/lifeos.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	ctx := logger.WithContext(context.Background(), log)

	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer container.Close()

	planPipeline, err := container.PlanPipeline(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create plan pipeline")
	}
	chatService, err := container.ChatService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create chat service")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.QueueSize, cfg.Jobs.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, app.PlanJobHandler(planPipeline)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	handler := handlers.NewRouter(handlers.Router{
		Expenses:   handlers.NewExpensesHandler(container.ExpensePipeline(), container.Ledger(), cfg.Watch.PollInterval),
		Plans:      handlers.NewPlansHandler(planPipeline, container.Ledger(), jobQueue, cfg.Jobs.MaxRetries, cfg.Watch.PollInterval),
		Jobs:       handlers.NewJobsHandler(jobStore),
		Chat:       handlers.NewChatHandler(chatService),
		CORSOrigin: cfg.HTTP.CORSOrigin,
	}, log)

	// Cancelled on shutdown so open event streams end.
	baseCtx, cancelBase := context.WithCancel(ctx)
	defer cancelBase()

	port := strconv.Itoa(cfg.HTTP.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return baseCtx
		},
	}
	server.RegisterOnShutdown(cancelBase)

	go func() {
		log.Info().
			Str("port", port).
			Str("ledger", cfg.Ledger.Backend).
			Str("oracle", cfg.Oracle.Provider).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
