package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
)

// config is read once at startup from the environment (and .env if present).
type config struct {
	Port           string
	DBURL          string
	StorageBackend string // postgres | memory
	Env            string // development | staging | production
	LogLevel       string
	SessionTTL     time.Duration
	DemoToken      string // seeds a session in the memory backend
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
}

func loadConfig() (config, error) {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config{}, fmt.Errorf("load .env: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "720h"))
	if err != nil {
		return config{}, fmt.Errorf("SESSION_TTL: %w", err)
	}

	cfg := config{
		Port:           getEnv("PORT", "8080"),
		DBURL:          os.Getenv("DB_URL"),
		StorageBackend: getEnv("STORAGE_BACKEND", "postgres"),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SessionTTL:     ttl,
		DemoToken:      os.Getenv("DEMO_TOKEN"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}
	return cfg, cfg.Validate()
}

func (c config) Validate() error {
	switch c.StorageBackend {
	case "postgres":
		if c.DBURL == "" {
			return errors.New("DB_URL is required when STORAGE_BACKEND=postgres")
		}
	case "memory":
	default:
		return errors.New("STORAGE_BACKEND must be one of: postgres, memory")
	}
	if !slices.Contains([]string{"development", "staging", "production"}, c.Env) {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
