package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.Timezone != "UTC" || cfg.Location() != time.UTC {
		t.Fatalf("timezone = %q, want UTC", cfg.Timezone)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("session ttl = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.Backend.Mode != BackendMemory {
		t.Fatalf("backend mode = %q, want memory", cfg.Backend.Mode)
	}
}

func TestLoadHTTPBackendRequiresBaseURL(t *testing.T) {
	t.Setenv("BACKEND_MODE", "http")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without BACKEND_BASE_URL")
	}

	t.Setenv("BACKEND_BASE_URL", "https://reclaim.example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Mode != BackendHTTP {
		t.Fatalf("backend mode = %q, want http", cfg.Backend.Mode)
	}
}

func TestLoadFirestoreBackendRequiresProject(t *testing.T) {
	t.Setenv("BACKEND_MODE", "firestore")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without GCP_PROJECT_ID")
	}

	t.Setenv("GCP_PROJECT_ID", "reclaim-dev")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadClerkAuthRequiresJWKS(t *testing.T) {
	t.Setenv("AUTH_MODE", "clerk")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without CLERK_JWKS_URL")
	}

	t.Setenv("CLERK_JWKS_URL", "https://clerk.example.com/.well-known/jwks.json")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadRejectsUnknownModes(t *testing.T) {
	t.Setenv("BACKEND_MODE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend mode")
	}
}

func TestLoadInvalidTimezone(t *testing.T) {
	t.Setenv("USER_TIMEZONE", "Not/AZone")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestLoadSessionTTLFallback(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("session ttl = %v, want 30m fallback", cfg.SessionTTL)
	}
}
