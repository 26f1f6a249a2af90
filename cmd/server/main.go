package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/dakshkumar96/Reclaim-sub000/internal/auth"
	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/config"
	"github.com/dakshkumar96/Reclaim-sub000/internal/httpapi"
	"github.com/dakshkumar96/Reclaim-sub000/internal/logging"
	"github.com/dakshkumar96/Reclaim-sub000/internal/server"
	"github.com/dakshkumar96/Reclaim-sub000/internal/session"
)

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger("progression-service")
	loc := cfg.Location()

	client, cleanup, err := newBackendClient(ctx, cfg, loc)
	if err != nil {
		panic(fmt.Errorf("backend client: %w", err))
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessions, err := session.NewManager(session.Config{
		Client:   client,
		Logger:   logger,
		Location: loc,
		TTL:      cfg.SessionTTL,
	})
	if err != nil {
		panic(fmt.Errorf("session manager: %w", err))
	}
	go sweepSessions(ctx, sessions, cfg.SessionTTL)

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := server.NewRouter("progression-service", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))
			httpapi.RegisterRoutes(r, sessions, client, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newBackendClient(ctx context.Context, cfg config.Config, loc *time.Location) (backend.Client, func(), error) {
	switch cfg.Backend.Mode {
	case config.BackendHTTP:
		return backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.ServiceToken), nil, nil
	case config.BackendFirestore:
		databaseID := "reclaim-prod"
		if cfg.Backend.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Backend.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
			databaseID = "(default)"
		}
		client, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, databaseID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return backend.NewFirestoreClient(client, loc), func() { client.Close() }, nil
	default:
		return backend.NewMemoryClient(seedCatalog(), nil, loc), nil, nil
	}
}

// seedCatalog provides the local-development challenge set.
func seedCatalog() []challenge.Challenge {
	return []challenge.Challenge{
		{ID: "no-social-media", Title: "No Instagram for 1 day", Difficulty: "easy", Category: "mindfulness", XPReward: 10, DurationDays: 1},
		{ID: "hydration-week", Title: "Drink 8 glasses of water", Difficulty: "easy", Category: "health", XPReward: 35, DurationDays: 7},
		{ID: "morning-run", Title: "Run every morning", Difficulty: "medium", Category: "health", XPReward: 100, DurationDays: 14},
		{ID: "deep-work", Title: "Two hours of deep work", Difficulty: "hard", Category: "productivity", XPReward: 300, DurationDays: 30},
	}
}

func sweepSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
		}
	}
}
