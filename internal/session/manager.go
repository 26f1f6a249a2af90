// Package session manages per-user progression engines: one engine per
// authenticated user, created on first use and torn down at logout or after
// an idle TTL.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/progression"
)

type entry struct {
	engine   *progression.Engine
	lastSeen time.Time
}

// Manager hands out progression engines keyed by user id.
type Manager struct {
	mu      sync.Mutex
	client  backend.Client
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
	ttl     time.Duration
	engines map[string]*entry
}

// Config collects Manager dependencies.
type Config struct {
	Client   backend.Client
	Logger   *slog.Logger
	Now      func() time.Time
	Location *time.Location
	TTL      time.Duration
}

// NewManager creates a session manager. TTL defaults to 30 minutes.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Manager{
		client:  cfg.Client,
		logger:  cfg.Logger,
		now:     cfg.Now,
		loc:     cfg.Location,
		ttl:     cfg.TTL,
		engines: make(map[string]*entry),
	}, nil
}

// Engine returns the user's engine, creating and seeding it from the backend
// on first use.
func (m *Manager) Engine(ctx context.Context, userID string) (*progression.Engine, error) {
	m.mu.Lock()
	if e, ok := m.engines[userID]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.engine, nil
	}
	m.mu.Unlock()

	engine, err := progression.NewEngine(progression.EngineConfig{
		UserID:   userID,
		Client:   m.client,
		Logger:   m.logger,
		Now:      m.now,
		Location: m.loc,
	})
	if err != nil {
		return nil, err
	}
	if err := engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have raced the seed; keep the first engine.
	if existing, ok := m.engines[userID]; ok {
		existing.lastSeen = m.now()
		return existing.engine, nil
	}
	m.engines[userID] = &entry{engine: engine, lastSeen: m.now()}
	return engine, nil
}

// End tears a session down at logout. In-flight reconciliations complete
// before the engine is dropped.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	e, ok := m.engines[userID]
	delete(m.engines, userID)
	m.mu.Unlock()

	if ok {
		e.engine.Wait()
		m.logger.Info("session ended", slog.String("userId", userID))
	}
}

// Sweep drops engines idle past the TTL. Run it periodically.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	cutoff := m.now().Add(-m.ttl)
	var expired []*entry
	for userID, e := range m.engines {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(m.engines, userID)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		e.engine.Wait()
	}
	return len(expired)
}
