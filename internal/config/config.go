// Package config loads runtime configuration from the environment.
// A .env.local file takes precedence over .env, matching local-dev habits.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable the lifesim binary reads.
type Config struct {
	Port int `env:"PORT" envDefault:"3001"`

	// Upstream provider credentials, injected by the proxy layer only.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	LegacyAPIKey string `env:"API_KEY"` // older deployments set API_KEY instead
	ImageAPIKey  string `env:"IMAGE_API_KEY"`

	// Shared secret callers must present to the proxy endpoints.
	// Empty disables the check (local dev).
	ProxyAPIKey string `env:"PROXY_API_KEY"`

	// Base URL of the generation provider the proxy forwards to.
	GenAIBase string `env:"GENAI_BASE" envDefault:"https://api.generativeai.googleapis.com/v1"`

	// Where the session orchestrator sends its own model calls. Defaults to
	// the in-process proxy when empty.
	ModelProxyURL string `env:"MODEL_PROXY_URL"`

	DBPath string `env:"LIFESIM_DB" envDefault:"data/lifesim.db"`

	// Orchestration tunables with the reference defaults.
	RandomEventChance float64 `env:"RANDOM_EVENT_CHANCE" envDefault:"0.25"`
	WorldEventPeriod  int     `env:"WORLD_EVENT_PERIOD" envDefault:"7"`

	// Optional remote entropy for the random-event gate.
	RandomOrgKey string `env:"RANDOM_ORG_KEY"`

	CORSOrigins []string `env:"CORS_ORIGINS"`
}

// Load reads .env.local or .env (if present) and then parses the process
// environment into a Config.
func Load() (Config, error) {
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			return Config{}, fmt.Errorf("load .env.local: %w", err)
		}
		slog.Info("loaded environment from .env.local")
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		slog.Info("loaded environment from .env")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ProviderKey returns the generation API key, honoring the legacy alias.
func (c Config) ProviderKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.LegacyAPIKey
}
