package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/sumzero/internal/api"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/pipeline"
	"github.com/dgallion1/sumzero/internal/storage"
	"github.com/dgallion1/sumzero/internal/summarize"
)

func main() {
	if err := config.LoadEnvFile(os.Getenv("SUMZERO_ENV_FILE")); err != nil {
		slog.Error("load env file", "error", err)
		os.Exit(2)
	}
	cfg := config.Load()

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	log := slog.New(handler)

	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	client := summarize.NewOpenAIClient(summarize.ClientConfig{
		APIKey:       cfg.OpenAIAPIKey,
		Organization: cfg.OpenAIOrg,
		BaseURL:      cfg.OpenAIBaseURL,
		Timeout:      cfg.RequestTimeout,
	})
	tok := chunker.NewTokenizer(log)

	var cache storage.SynopsisStore
	if cfg.CachePath != "" {
		db, err := storage.New(cfg.CachePath)
		if err != nil {
			log.Error("open cache", "path", cfg.CachePath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := storage.Migrate(db); err != nil {
			log.Error("migrate cache", "error", err)
			os.Exit(1)
		}
		cache = storage.NewSynopsisRepo(db)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, client, cache, tok, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, client.Stats, tok, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting sumzero", "port", cfg.Port, "standard_model", cfg.StandardModel, "large_model", cfg.LargeModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
