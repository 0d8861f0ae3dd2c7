package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	DatabaseURL     string
	RedisURL        string
	NatsURL         string
	NatsToken       string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	APIToken        string

	// Simulation tuning.
	SimLowerBound int
	SimUpperBound int
	SimMinTurns   int
	SimMaxTurns   int
}

func Load() Config {
	return Config{
		Port:            envInt("VISAFLOW_PORT", 8760),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		RedisURL:        envStr("REDIS_URL", "redis://localhost:6379/0"),
		NatsURL:         envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("VISAFLOW_MODEL", "claude-sonnet-4-20250514"),
		APIToken:        envStr("VISAFLOW_API_TOKEN", ""),

		SimLowerBound: envInt("SIM_LOWER_BOUND", 20),
		SimUpperBound: envInt("SIM_UPPER_BOUND", 85),
		SimMinTurns:   envInt("SIM_MIN_TURNS", 5),
		SimMaxTurns:   envInt("SIM_MAX_TURNS", 25),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
