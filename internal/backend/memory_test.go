package backend

import (
	"context"
	"testing"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
)

func memoryCatalog() []challenge.Challenge {
	return []challenge.Challenge{
		{ID: "run", Title: "Morning run", Difficulty: "medium", XPReward: 50, DurationDays: 2},
		{ID: "water", Title: "Hydration", Difficulty: "easy", DurationDays: 7},
	}
}

func TestMemoryStartAndCheckIn(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryClient(memoryCatalog(), func() time.Time { return now }, time.UTC)

	start, err := c.StartChallenge(ctx, "u1", "run")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.UserChallengeID == "" {
		t.Fatal("expected generated user challenge id")
	}

	res, err := c.CheckIn(ctx, "u1", "run")
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if res.XPGained != 10 {
		t.Fatalf("xp gained = %d, want 10", res.XPGained)
	}

	profile, err := c.FetchProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch profile: %v", err)
	}
	if profile.XP != 10 || profile.Streak != 1 {
		t.Fatalf("profile = %+v, want xp 10 streak 1", profile)
	}
}

func TestMemoryCheckInRejections(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryClient(memoryCatalog(), func() time.Time { return now }, time.UTC)

	_, err := c.CheckIn(ctx, "u1", "run")
	if _, ok := IsRejection(err); !ok {
		t.Fatalf("check-in without start error = %v, want rejection", err)
	}

	if _, err := c.StartChallenge(ctx, "u1", "run"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.StartChallenge(ctx, "u1", "run"); err == nil {
		t.Fatal("second start succeeded, want rejection")
	}

	if _, err := c.CheckIn(ctx, "u1", "run"); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	_, err = c.CheckIn(ctx, "u1", "run")
	msg, ok := IsRejection(err)
	if !ok || msg != "Already checked in today" {
		t.Fatalf("same-day check-in error = %v, want rejection with server message", err)
	}
}

func TestMemoryCompletionBonusAndLevelUp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryClient(memoryCatalog(), func() time.Time { return now }, time.UTC)

	if _, err := c.StartChallenge(ctx, "u1", "run"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.CheckIn(ctx, "u1", "run"); err != nil {
		t.Fatalf("day 1: %v", err)
	}

	now = now.Add(24 * time.Hour)
	res, err := c.CheckIn(ctx, "u1", "run")
	if err != nil {
		t.Fatalf("day 2: %v", err)
	}
	// Final day: daily 10 plus the 50 completion bonus.
	if res.XPGained != 60 {
		t.Fatalf("xp gained = %d, want 60", res.XPGained)
	}
	// 70 total XP stays within level 1.
	if res.LeveledUp {
		t.Fatalf("unexpected level-up: %+v", res)
	}

	profile, _ := c.FetchProfile(ctx, "u1")
	if profile.XP != 70 {
		t.Fatalf("profile xp = %d, want 70", profile.XP)
	}

	active, err := c.ListActiveChallenges(ctx, "u1")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("completed challenge still listed as active: %+v", active)
	}

	board, err := c.ListLeaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Rank != 1 || board[0].CompletedChallenges != 1 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}
}
