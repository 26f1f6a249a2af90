package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/auth"
	"github.com/dakshkumar96/Reclaim-sub000/internal/envconfig"
)

// BackendMode selects how the progression tier reaches the authoritative backend.
type BackendMode string

const (
	// BackendHTTP proxies through the Reclaim REST API.
	BackendHTTP BackendMode = "http"
	// BackendFirestore reads and writes the backend's Firestore database directly.
	BackendFirestore BackendMode = "firestore"
	// BackendMemory keeps everything in memory (local development only).
	BackendMemory BackendMode = "memory"
)

// Config encapsulates the runtime configuration for the progression service.
type Config struct {
	Port         string `validate:"required"`
	GCPProjectID string
	Timezone     string
	SessionTTL   time.Duration
	Auth         AuthConfig
	Backend      BackendConfig
}

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     auth.Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// BackendConfig selects and parameterizes the backend collaborator.
type BackendConfig struct {
	Mode         BackendMode
	BaseURL      string
	ServiceToken string
	EmulatorHost string
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		Timezone:     envconfig.Get("USER_TIMEZONE", "UTC"),
		SessionTTL:   parseDurationFallback(envconfig.Get("SESSION_TTL", "30m"), 30*time.Minute),
		Auth: AuthConfig{
			Mode:    auth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(auth.ModeNoop)))),
			JWKSURL: envconfig.Get("CLERK_JWKS_URL", ""),
			Issuer:  envconfig.Get("CLERK_ISSUER", ""),
		},
		Backend: BackendConfig{
			Mode:         BackendMode(strings.ToLower(envconfig.Get("BACKEND_MODE", string(BackendMemory)))),
			BaseURL:      envconfig.Get("BACKEND_BASE_URL", ""),
			ServiceToken: envconfig.Get("BACKEND_SERVICE_TOKEN", ""),
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
	}

	if err := envconfig.Validate(cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid USER_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	switch cfg.Auth.Mode {
	case auth.ModeClerk:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
		}
	case auth.ModeNoop:
		// no-op
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	switch cfg.Backend.Mode {
	case BackendHTTP:
		if cfg.Backend.BaseURL == "" {
			return fmt.Errorf("BACKEND_BASE_URL is required when BACKEND_MODE=http")
		}
	case BackendFirestore:
		if cfg.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when BACKEND_MODE=firestore")
		}
	case BackendMemory:
		// no-op
	default:
		return fmt.Errorf("unsupported backend mode: %s", cfg.Backend.Mode)
	}

	return nil
}

// Location resolves the configured user timezone. Load already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseDurationFallback(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
