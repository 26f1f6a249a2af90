package progression

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
)

var day = func(d, hour int) time.Time {
	return time.Date(2025, time.June, d, hour, 0, 0, 0, time.UTC)
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil, time.UTC)

	last := day(3, 9)
	s.Seed(
		backend.Profile{UserID: "u1", Username: "ada", XP: 35, Level: 1},
		[]*challenge.Enrollment{{
			ChallengeID:     "run",
			UserChallengeID: "uc-1",
			State:           challenge.StateActive,
			ProgressDays:    3,
			TotalDays:       14,
			CurrentStreak:   3,
			LastCheckInDate: &last,
		}},
		nil,
		day(4, 8),
	)
	return s
}

func runChallenge() challenge.Challenge {
	return challenge.Challenge{ID: "run", Title: "Morning run", Difficulty: "medium", XPReward: 100, DurationDays: 14}
}

func TestOptimisticCheckInAppliesPrediction(t *testing.T) {
	s := seededStore(t)

	id, predicted, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if err != nil {
		t.Fatalf("optimistic check-in: %v", err)
	}
	if id == "" || predicted != 10 {
		t.Fatalf("id = %q, predicted = %d, want non-empty and 10", id, predicted)
	}

	snap := s.Snapshot()
	if snap.Progress.XP != 45 {
		t.Fatalf("optimistic XP = %d, want 45", snap.Progress.XP)
	}
	e := snap.Enrollments[0]
	if e.ProgressDays != 4 || !e.CheckedInToday || e.CurrentStreak != 4 {
		t.Fatalf("unexpected optimistic enrollment: %+v", e)
	}
	if snap.Pending != 1 {
		t.Fatalf("pending = %d, want 1", snap.Pending)
	}
}

func TestSameChallengeSerializedLocally(t *testing.T) {
	s := seededStore(t)

	if _, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9)); err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	// The double-click observes the first optimistic state and is rejected
	// before any network call.
	_, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if !errors.Is(err, challenge.ErrAlreadyCheckedIn) {
		t.Fatalf("second check-in error = %v, want ErrAlreadyCheckedIn", err)
	}
}

func TestReconcileRollbackRestoresExactState(t *testing.T) {
	s := seededStore(t)
	before := s.Snapshot()

	id, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if err != nil {
		t.Fatalf("optimistic check-in: %v", err)
	}

	out := s.Reconcile(id, Result{Err: errors.New("connection refused")})
	if !out.RolledBack || out.Failure == "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	after := s.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rollback not exact:\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestReconcileRejectionKeepsServerMessage(t *testing.T) {
	s := seededStore(t)

	id, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if err != nil {
		t.Fatalf("optimistic check-in: %v", err)
	}

	out := s.Reconcile(id, Result{Rejection: "Already checked in today"})
	if !out.RolledBack || out.Failure != "Already checked in today" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestReconcileAuthoritativeXPWins(t *testing.T) {
	s := seededStore(t)

	id, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if err != nil {
		t.Fatalf("optimistic check-in: %v", err)
	}

	// Server granted more than predicted (completion bonus logic upstream).
	out := s.Reconcile(id, Result{CheckIn: &backend.CheckInResult{XPGained: 25}})
	if !out.Applied || out.XPGained != 25 || out.PredictedXP != 10 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	snap := s.Snapshot()
	if snap.Progress.XP != 60 { // 35 + 25
		t.Fatalf("XP = %d, want 60", snap.Progress.XP)
	}
	if snap.Pending != 0 {
		t.Fatalf("pending = %d, want 0", snap.Pending)
	}
}

func TestReconcileLevelUpIsAuthoritative(t *testing.T) {
	s := seededStore(t)

	id, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if err != nil {
		t.Fatalf("optimistic check-in: %v", err)
	}

	out := s.Reconcile(id, Result{CheckIn: &backend.CheckInResult{XPGained: 70, LeveledUp: true, NewLevel: 2}})
	if !out.LeveledUp || out.NewLevel != 2 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	snap := s.Snapshot()
	if snap.Progress.Level != 2 || snap.Progress.XP != 105 {
		t.Fatalf("level = %d, xp = %d, want 2 and 105", snap.Progress.Level, snap.Progress.XP)
	}
	if snap.LevelFloorXP != 100 || snap.LevelCeilXP != 200 {
		t.Fatalf("bounds = (%d, %d), want (100, 200)", snap.LevelFloorXP, snap.LevelCeilXP)
	}
}

func TestReconcileUnknownCorrelationDiscarded(t *testing.T) {
	s := seededStore(t)
	before := s.Snapshot()

	out := s.Reconcile("no-such-id", Result{CheckIn: &backend.CheckInResult{XPGained: 999}})
	if !out.Stale {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatal("discarded reconciliation mutated state")
	}
}

func TestReconcileStaleSequenceDropped(t *testing.T) {
	s := seededStore(t)

	// Two check-ins on consecutive days, both still awaiting their responses.
	first, _, err := s.OptimisticCheckIn(runChallenge(), day(4, 9))
	if err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	second, _, err := s.OptimisticCheckIn(runChallenge(), day(5, 9))
	if err != nil {
		t.Fatalf("second check-in: %v", err)
	}

	// The later write reconciles first.
	if out := s.Reconcile(second, Result{CheckIn: &backend.CheckInResult{XPGained: 10}}); !out.Applied {
		t.Fatalf("second reconcile outcome: %+v", out)
	}
	after := s.Snapshot()

	// The older response arrives late: dropped without touching progression
	// state (only its pending record is cleared).
	out := s.Reconcile(first, Result{CheckIn: &backend.CheckInResult{XPGained: 10}})
	if !out.Stale {
		t.Fatalf("first reconcile outcome = %+v, want stale", out)
	}
	final := s.Snapshot()
	if final.Progress != after.Progress || !reflect.DeepEqual(final.Enrollments, after.Enrollments) {
		t.Fatal("stale reconciliation changed progression state")
	}
}

func TestOptimisticStartAndReconcile(t *testing.T) {
	s := seededStore(t)
	ch := challenge.Challenge{ID: "water", Title: "Hydration", Difficulty: "easy", DurationDays: 7}

	id, err := s.OptimisticStart(ch)
	if err != nil {
		t.Fatalf("optimistic start: %v", err)
	}

	// A second start while the first is pending fails locally.
	if _, err := s.OptimisticStart(ch); !errors.Is(err, challenge.ErrAlreadyActive) {
		t.Fatalf("second start error = %v, want ErrAlreadyActive", err)
	}

	out := s.Reconcile(id, Result{Start: &backend.StartResult{UserChallengeID: "uc-9"}})
	if !out.Applied {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	snap := s.Snapshot()
	for _, e := range snap.Enrollments {
		if e.ChallengeID == "water" {
			if e.UserChallengeID != "uc-9" || e.State != challenge.StateActive {
				t.Fatalf("unexpected enrollment: %+v", e)
			}
			return
		}
	}
	t.Fatal("started enrollment missing from snapshot")
}

func TestOptimisticStartRollbackRemovesEnrollment(t *testing.T) {
	s := seededStore(t)
	ch := challenge.Challenge{ID: "water", Title: "Hydration", Difficulty: "easy", DurationDays: 7}
	before := s.Snapshot()

	id, err := s.OptimisticStart(ch)
	if err != nil {
		t.Fatalf("optimistic start: %v", err)
	}
	out := s.Reconcile(id, Result{Err: errors.New("timeout")})
	if !out.RolledBack {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatal("rollback left the optimistic enrollment behind")
	}
}

func TestSeedDerivesCheckedInToday(t *testing.T) {
	s := NewStore(nil, time.UTC)
	today := day(4, 7)
	yesterday := day(3, 7)

	s.Seed(backend.Profile{UserID: "u1", Level: 1}, []*challenge.Enrollment{
		{ChallengeID: "a", State: challenge.StateCheckedInToday, TotalDays: 7, LastCheckInDate: &today},
		{ChallengeID: "b", State: challenge.StateCheckedInToday, TotalDays: 7, LastCheckInDate: &yesterday},
	}, nil, day(4, 12))

	snap := s.Snapshot()
	for _, e := range snap.Enrollments {
		switch e.ChallengeID {
		case "a":
			if !e.CheckedInToday || e.State != challenge.StateCheckedInToday {
				t.Fatalf("enrollment a: %+v", e)
			}
		case "b":
			if e.CheckedInToday || e.State != challenge.StateActive {
				t.Fatalf("enrollment b: %+v", e)
			}
		}
	}
}

func TestSeedBadgeOmissionIsSilentCorrection(t *testing.T) {
	s := seededStore(t)
	s.MarkEarned([]string{"xp-100"}, day(4, 9))

	// A full resync without the badge removes it.
	s.Seed(backend.Profile{UserID: "u1", Level: 1}, nil, nil, day(5, 8))
	if earned := s.EarnedSet(); len(earned) != 0 {
		t.Fatalf("earned after resync = %v, want empty", earned)
	}
}
