package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/wayfarer-app/visaflow/internal/anthropic"
	"github.com/wayfarer-app/visaflow/internal/api"
	"github.com/wayfarer-app/visaflow/internal/config"
	"github.com/wayfarer-app/visaflow/internal/confirm"
	"github.com/wayfarer-app/visaflow/internal/events"
	"github.com/wayfarer-app/visaflow/internal/interview"
	"github.com/wayfarer-app/visaflow/internal/ocr"
	"github.com/wayfarer-app/visaflow/internal/scoring"
	"github.com/wayfarer-app/visaflow/internal/session"
	"github.com/wayfarer-app/visaflow/internal/store"
	"github.com/wayfarer-app/visaflow/internal/validate"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("visaflow starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Redis sessions
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	sessions := session.NewStore(redisClient)
	slog.Info("redis connected")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// NATS events
	publisher, err := events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Interview engine
	validator := validate.New(validate.NewLLMClassifier(llm, slog.Default()), slog.Default())
	intents := confirm.NewLLMIntent(llm, slog.Default())
	engine := interview.New(db, sessions, validator, intents, publisher, slog.Default())

	// Consular simulation
	settings := scoring.Settings{
		LowerBound: cfg.SimLowerBound,
		UpperBound: cfg.SimUpperBound,
		MinTurns:   cfg.SimMinTurns,
		MaxTurns:   cfg.SimMaxTurns,
	}
	officer := interview.NewLLMOfficer(llm, slog.Default())
	simulator := interview.NewSimulator(db, officer, publisher, settings, slog.Default())

	// Passport OCR
	extractor := ocr.NewLLMExtractor(llm, slog.Default())

	// HTTP API
	if cfg.APIToken == "" {
		slog.Warn("VISAFLOW_API_TOKEN not set — admin API disabled")
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, engine, simulator, extractor, slog.Default())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
	slog.Info("visaflow stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
