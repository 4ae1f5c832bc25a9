package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port          string
	DatabaseURL   string
	StoreDriver   string
	SessionSecret string
	JWTSecret     string
	LogLevel      string
	SiteURL       string
	GinMode       string
	TemplatesDir  string
	StaticDir     string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	// .env is optional; the system environment wins for keys already set.
	_ = godotenv.Load()

	cfg := Config{
		Port:          env("PORT", "8080"),
		DatabaseURL:   env("DATABASE_URL", ""),
		StoreDriver:   strings.ToLower(env("STORE_DRIVER", DriverPostgres)),
		SessionSecret: env("SESSION_SECRET", ""),
		JWTSecret:     env("AUTH_JWT_SECRET", ""),
		LogLevel:      env("LOG_LEVEL", "info"),
		SiteURL:       strings.TrimSuffix(env("SITE_URL", "http://localhost:8080"), "/"),
		GinMode:       env("GIN_MODE", "release"),
		TemplatesDir:  env("TEMPLATES_DIR", "./web/templates"),
		StaticDir:     env("STATIC_DIR", "./web/static"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return Config{}, errors.New("STORE_DRIVER must be postgres or memory")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "secret_key_change_me"
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
