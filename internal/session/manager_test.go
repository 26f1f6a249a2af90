package session

import (
	"context"
	"testing"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
)

func newTestManager(t *testing.T, clock *time.Time) *Manager {
	t.Helper()
	client := backend.NewMemoryClient(
		[]challenge.Challenge{{ID: "run", Title: "Morning run", Difficulty: "medium", DurationDays: 14}},
		func() time.Time { return *clock },
		time.UTC,
	)
	m, err := NewManager(Config{
		Client: client,
		Now:    func() time.Time { return *clock },
		TTL:    30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestEngineReusedPerUser(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)
	ctx := context.Background()

	first, err := m.Engine(ctx, "u1")
	if err != nil {
		t.Fatalf("first engine: %v", err)
	}
	second, err := m.Engine(ctx, "u1")
	if err != nil {
		t.Fatalf("second engine: %v", err)
	}
	if first != second {
		t.Fatal("same user got two different engines")
	}

	other, err := m.Engine(ctx, "u2")
	if err != nil {
		t.Fatalf("other engine: %v", err)
	}
	if other == first {
		t.Fatal("different users share an engine")
	}
}

func TestEndDropsEngine(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)
	ctx := context.Background()

	first, err := m.Engine(ctx, "u1")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	m.End("u1")

	replacement, err := m.Engine(ctx, "u1")
	if err != nil {
		t.Fatalf("engine after end: %v", err)
	}
	if replacement == first {
		t.Fatal("ended engine was handed out again")
	}

	// Ending an unknown session is a no-op.
	m.End("nobody")
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)
	ctx := context.Background()

	if _, err := m.Engine(ctx, "idle"); err != nil {
		t.Fatalf("engine: %v", err)
	}
	now = now.Add(20 * time.Minute)
	if _, err := m.Engine(ctx, "fresh"); err != nil {
		t.Fatalf("engine: %v", err)
	}

	now = now.Add(15 * time.Minute)
	if evicted := m.Sweep(); evicted != 1 {
		t.Fatalf("sweep evicted %d sessions, want 1", evicted)
	}

	// The fresh session survived; touching it keeps the same engine.
	fresh, err := m.Engine(ctx, "fresh")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if fresh == nil {
		t.Fatal("fresh session missing after sweep")
	}
	if evicted := m.Sweep(); evicted != 0 {
		t.Fatalf("second sweep evicted %d sessions, want 0", evicted)
	}
}
