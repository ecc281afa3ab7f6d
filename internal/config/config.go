package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all process configuration. One struct serves both binaries;
// each binary validates only the sections it actually needs.
type Config struct {
	Port string `env:"PORT" envDefault:"3001"`

	RedisURL string `env:"REDIS_URL"`

	// WebhookSecret is intentionally not required at load time: a missing
	// secret is reported per-request as a server error by the signature
	// verifier, not as a startup crash of the whole API.
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	DatabaseURL string `env:"DATABASE_URL"`

	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	FineDocumentsBucket    string `env:"SUPABASE_FINE_DOCUMENTS_BUCKET"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`

	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	WorkerMaxAttempts int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"3"`
	WorkerJobTimeout  time.Duration `env:"WORKER_JOB_TIMEOUT" envDefault:"3m"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// ValidateAPI checks the settings the webhook server needs.
func (c Config) ValidateAPI() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	return nil
}

// ValidateWorker checks the settings the worker needs.
func (c Config) ValidateWorker() error {
	switch {
	case c.RedisURL == "":
		return fmt.Errorf("REDIS_URL is required")
	case c.DatabaseURL == "":
		return fmt.Errorf("DATABASE_URL is required")
	case c.SupabaseURL == "":
		return fmt.Errorf("SUPABASE_URL is required")
	case c.SupabaseServiceRoleKey == "":
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	case c.FineDocumentsBucket == "":
		return fmt.Errorf("SUPABASE_FINE_DOCUMENTS_BUCKET is required")
	case c.GeminiAPIKey == "":
		return fmt.Errorf("GEMINI_API_KEY is required")
	case c.GeminiModel == "":
		return fmt.Errorf("GEMINI_MODEL is required")
	}
	return nil
}
