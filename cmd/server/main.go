package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/VishnuVamsi7/DocReporter/internal/api"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/config"
	"github.com/VishnuVamsi7/DocReporter/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	tuning, err := cfg.ResolveTuning()
	if err != nil {
		log.Error("invalid tuning file", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		log.Error("backend init failed", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.BackendRPS), 1)
	stats := compress.NewStats(15 * time.Minute)
	engine := compress.NewEngine(backend, limiter, stats, log, tuning.EngineConfig())

	orch := pipeline.NewOrchestrator(cfg, tuning, engine, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, engine, cfg.Backend, log, cfg)

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

		closeBackend()
	}()

	log.Info("starting docreporter", "port", cfg.Port, "backend", cfg.Backend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newBackend(ctx context.Context, cfg config.Config) (compress.Compressor, func(), error) {
	switch cfg.Backend {
	case "groq":
		c := compress.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL)
		return c, c.Close, nil
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, nil, err
		}
		return compress.NewGeminiClient(client, cfg.GeminiModel), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
