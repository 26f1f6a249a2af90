// Package progression owns the in-session progression state for one user:
// the reconciliation store that applies optimistic mutations and settles them
// against authoritative backend responses, and the engine that drives the
// whole action → optimistic update → reconcile → notify flow.
package progression

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/streak"
	"github.com/dakshkumar96/Reclaim-sub000/internal/xp"
)

// UserProgress is the locally-held view of the user's authoritative
// progression numbers. Level is never recomputed client-side; it only changes
// through reconciliation or a full resync.
type UserProgress struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// Snapshot is an immutable read-only view of the store. Readers re-read on
// every render instead of caching it.
type Snapshot struct {
	Progress     UserProgress           `json:"progress"`
	LevelFloorXP int                    `json:"level_floor_xp"`
	LevelCeilXP  int                    `json:"level_ceil_xp"`
	LevelPercent float64                `json:"level_percent"`
	Streak       int                    `json:"streak"`
	Completed    int                    `json:"completed_challenges"`
	Enrollments  []challenge.Enrollment `json:"enrollments"`
	EarnedBadges []string               `json:"earned_badges"`
	Pending      int                    `json:"pending_mutations"`
}

type mutationKind int

const (
	mutationStart mutationKind = iota
	mutationCheckIn
)

// pendingMutation retains everything needed to roll an optimistic update back
// to the exact pre-mutation state.
type pendingMutation struct {
	correlationID string
	challengeID   string
	seq           uint64
	kind          mutationKind
	before        *challenge.Enrollment // nil when no enrollment existed
	xpDelta       int
}

// Result is the settled outcome of the backend call issued for one optimistic
// mutation. Exactly one of the branches is meaningful: Err for transport
// failures, Rejection for an authoritative success:false, otherwise the
// success payload.
type Result struct {
	Err       error
	Rejection string
	Start     *backend.StartResult
	CheckIn   *backend.CheckInResult
}

// Outcome describes what Reconcile did, for the engine to translate into
// notifications. A stale outcome means nothing changed.
type Outcome struct {
	ChallengeID string
	Applied     bool
	Stale       bool
	RolledBack  bool
	Failure     string
	PredictedXP int
	XPGained    int
	LeveledUp   bool
	NewLevel    int
	Completed   bool
}

// Store is the single mutable source of truth for one user's session. It is
// mutated only through the optimistic-apply and reconcile entry points.
type Store struct {
	mu     sync.Mutex
	logger *slog.Logger
	loc    *time.Location

	progress    UserProgress
	thresholds  xp.Thresholds
	enrollments map[string]*challenge.Enrollment
	earned      map[string]time.Time

	pending        map[string]*pendingMutation
	nextSeq        map[string]uint64
	lastReconciled map[string]uint64
}

// NewStore creates an empty store. Seed it from the backend before use.
func NewStore(logger *slog.Logger, loc *time.Location) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		logger:         logger,
		loc:            loc,
		enrollments:    make(map[string]*challenge.Enrollment),
		earned:         make(map[string]time.Time),
		pending:        make(map[string]*pendingMutation),
		nextSeq:        make(map[string]uint64),
		lastReconciled: make(map[string]uint64),
	}
}

// Seed replaces all state with a full authoritative resync. A previously
// earned badge missing from records is removed silently; that is a data
// correction, not a user-facing event. Pending mutations are discarded, so
// any still-in-flight response reconciles as stale.
func (s *Store) Seed(profile backend.Profile, enrollments []*challenge.Enrollment, records []backend.BadgeRecord, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = UserProgress{
		UserID:   profile.UserID,
		Username: profile.Username,
		XP:       profile.XP,
		Level:    profile.Level,
	}
	if s.progress.Level < 1 {
		s.progress.Level = 1
	}
	s.thresholds = xp.NewThresholds(profile.LevelFloors)

	s.enrollments = make(map[string]*challenge.Enrollment, len(enrollments))
	for _, e := range enrollments {
		copied := e.Clone()
		// checked-in-today is a local calendar fact, not a stored field
		copied.CheckedInToday = copied.LastCheckInDate != nil &&
			streak.SameDay(*copied.LastCheckInDate, now, s.loc)
		if copied.State == challenge.StateCheckedInToday && !copied.CheckedInToday {
			copied.State = challenge.StateActive
		}
		s.enrollments[copied.ChallengeID] = copied
	}

	s.earned = make(map[string]time.Time, len(records))
	for _, r := range records {
		s.earned[r.BadgeID] = r.EarnedAt
	}

	s.pending = make(map[string]*pendingMutation)
}

// OptimisticStart records a locally-predicted enrollment for ch before the
// network call resolves. The returned correlation id ties the eventual
// backend response back to this mutation.
func (s *Store) OptimisticStart(ch challenge.Challenge) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.enrollments[ch.ID]
	enrollment, err := challenge.Start(ch, existing)
	if err != nil {
		return "", err
	}

	p := s.track(ch.ID, mutationStart, existing, 0)
	s.enrollments[ch.ID] = enrollment
	return p.correlationID, nil
}

// OptimisticCheckIn applies a locally-predicted daily check-in: progress,
// streak, checked-in flag and predicted XP. A second call for the same
// challenge on the same day observes the first's optimistic state and fails
// with ErrAlreadyCheckedIn before any network traffic happens.
func (s *Store) OptimisticCheckIn(ch challenge.Challenge, now time.Time) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.enrollments[ch.ID]
	if e == nil {
		return "", 0, challenge.ErrNotActive
	}
	challenge.RollOver(e, now, s.loc)

	before := e.Clone()
	if err := challenge.CheckIn(e, now, s.loc); err != nil {
		return "", 0, err
	}

	predicted := challenge.DailyXP(ch.Difficulty)
	if e.State == challenge.StateCompleted {
		predicted += ch.XPReward
	}
	s.progress.XP += predicted

	p := s.track(ch.ID, mutationCheckIn, before, predicted)
	return p.correlationID, predicted, nil
}

// Reconcile settles the backend response for the mutation recorded under
// correlationID. Authoritative values win over the optimistic prediction on
// success; failure restores the exact pre-mutation state. Responses that are
// unknown or carry a lower sequence number than the last reconciled write for
// the challenge are dropped: a newer optimistic state is never overwritten by
// an older authoritative one.
func (s *Store) Reconcile(correlationID string, res Result) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[correlationID]
	if !ok {
		s.logger.Warn("discarding reconciliation for unknown correlation id",
			slog.String("correlationId", correlationID))
		return Outcome{Stale: true}
	}
	delete(s.pending, correlationID)

	if p.seq <= s.lastReconciled[p.challengeID] {
		s.logger.Warn("dropping stale reconciliation",
			slog.String("challengeId", p.challengeID),
			slog.Uint64("seq", p.seq),
			slog.Uint64("lastReconciled", s.lastReconciled[p.challengeID]))
		return Outcome{ChallengeID: p.challengeID, Stale: true}
	}
	s.lastReconciled[p.challengeID] = p.seq

	if res.Err != nil || res.Rejection != "" {
		return s.rollback(p, res)
	}

	out := Outcome{ChallengeID: p.challengeID, Applied: true, PredictedXP: p.xpDelta}
	e := s.enrollments[p.challengeID]

	switch p.kind {
	case mutationStart:
		if e != nil && res.Start != nil {
			e.UserChallengeID = res.Start.UserChallengeID
		}
	case mutationCheckIn:
		if res.CheckIn != nil {
			// Authoritative XP wins: replace the predicted delta with the
			// server-confirmed one. Deltas compose, so mutations in flight
			// for other challenges stay untouched.
			s.progress.XP += res.CheckIn.XPGained - p.xpDelta
			out.XPGained = res.CheckIn.XPGained
			if res.CheckIn.LeveledUp {
				s.progress.Level = res.CheckIn.NewLevel
				out.LeveledUp = true
				out.NewLevel = res.CheckIn.NewLevel
			}
		}
		out.Completed = e != nil && e.State == challenge.StateCompleted
	}
	return out
}

func (s *Store) rollback(p *pendingMutation, res Result) Outcome {
	if p.before == nil {
		delete(s.enrollments, p.challengeID)
	} else {
		s.enrollments[p.challengeID] = p.before.Clone()
	}
	s.progress.XP -= p.xpDelta

	failure := res.Rejection
	if failure == "" {
		failure = "Something went wrong. Please try again."
	}
	return Outcome{ChallengeID: p.challengeID, RolledBack: true, Failure: failure}
}

// MarkEarned records newly unlocked badges. Earned badges are immutable for
// the rest of the session.
func (s *Store) MarkEarned(ids []string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.earned[id]; !ok {
			s.earned[id] = now
		}
	}
}

// EarnedSet returns a copy of the earned badge ids.
func (s *Store) EarnedSet() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.earned))
	for id := range s.earned {
		out[id] = true
	}
	return out
}

// Snapshot returns a deep copy of the current state with derived view values
// (XP bar bounds and fill, best streak, completed count) precomputed.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	floor, ceil := s.thresholds.Bounds(s.progress.Level)
	snap := Snapshot{
		Progress:     s.progress,
		LevelFloorXP: floor,
		LevelCeilXP:  ceil,
		LevelPercent: xp.LevelProgress(s.progress.XP, floor, ceil),
		Pending:      len(s.pending),
	}

	snap.Enrollments = make([]challenge.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		snap.Enrollments = append(snap.Enrollments, *e.Clone())
		if e.CurrentStreak > snap.Streak &&
			(e.State == challenge.StateActive || e.State == challenge.StateCheckedInToday) {
			snap.Streak = e.CurrentStreak
		}
		if e.State == challenge.StateCompleted {
			snap.Completed++
			if e.CurrentStreak > snap.Streak {
				snap.Streak = e.CurrentStreak
			}
		}
	}
	sort.Slice(snap.Enrollments, func(i, j int) bool {
		return snap.Enrollments[i].ChallengeID < snap.Enrollments[j].ChallengeID
	})

	snap.EarnedBadges = make([]string, 0, len(s.earned))
	for id := range s.earned {
		snap.EarnedBadges = append(snap.EarnedBadges, id)
	}
	sort.Strings(snap.EarnedBadges)

	return snap
}

func (s *Store) track(challengeID string, kind mutationKind, before *challenge.Enrollment, xpDelta int) *pendingMutation {
	s.nextSeq[challengeID]++
	p := &pendingMutation{
		correlationID: uuid.New().String(),
		challengeID:   challengeID,
		seq:           s.nextSeq[challengeID],
		kind:          kind,
		before:        before.Clone(),
		xpDelta:       xpDelta,
	}
	s.pending[p.correlationID] = p
	return p
}
