package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/streak"
	"github.com/dakshkumar96/Reclaim-sub000/internal/xp"
)

// memoryClient implements Client with in-memory storage. Used for local
// development without a backend and as the fake in package tests.
type memoryClient struct {
	mu          sync.Mutex
	now         func() time.Time
	loc         *time.Location
	profiles    map[string]*Profile
	catalog     []challenge.Challenge
	enrollments map[string]map[string]*challenge.Enrollment
	badges      map[string][]BadgeRecord
}

// NewMemoryClient creates an in-memory backend seeded with the given catalog.
func NewMemoryClient(catalog []challenge.Challenge, now func() time.Time, loc *time.Location) Client {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &memoryClient{
		now:         now,
		loc:         loc,
		profiles:    make(map[string]*Profile),
		catalog:     catalog,
		enrollments: make(map[string]map[string]*challenge.Enrollment),
		badges:      make(map[string][]BadgeRecord),
	}
}

func (m *memoryClient) profile(userID string) *Profile {
	p, ok := m.profiles[userID]
	if !ok {
		p = &Profile{UserID: userID, Username: userID, Level: 1, CreatedAt: m.now()}
		m.profiles[userID] = p
	}
	return p
}

func (m *memoryClient) FetchProfile(_ context.Context, userID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.profile(userID), nil
}

func (m *memoryClient) ListChallenges(_ context.Context) ([]challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]challenge.Challenge, len(m.catalog))
	copy(out, m.catalog)
	return out, nil
}

func (m *memoryClient) ListActiveChallenges(_ context.Context, userID string) ([]*challenge.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []*challenge.Enrollment
	for _, e := range m.enrollments[userID] {
		if e.State == challenge.StateActive || e.State == challenge.StateCheckedInToday {
			active = append(active, e.Clone())
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ChallengeID < active[j].ChallengeID })
	return active, nil
}

func (m *memoryClient) StartChallenge(_ context.Context, userID, challengeID string) (StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.enrollments[userID][challengeID]; exists {
		return StartResult{}, &RejectionError{Message: "Challenge already started"}
	}

	ch, ok := m.findChallenge(challengeID)
	if !ok {
		return StartResult{}, &RejectionError{Message: "Challenge not found"}
	}

	e := &challenge.Enrollment{
		ChallengeID:     challengeID,
		UserChallengeID: uuid.New().String(),
		State:           challenge.StateActive,
		TotalDays:       ch.DurationDays,
	}
	if m.enrollments[userID] == nil {
		m.enrollments[userID] = make(map[string]*challenge.Enrollment)
	}
	m.enrollments[userID][challengeID] = e
	return StartResult{UserChallengeID: e.UserChallengeID}, nil
}

func (m *memoryClient) CheckIn(_ context.Context, userID, challengeID string) (CheckInResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.enrollments[userID][challengeID]
	if !exists {
		return CheckInResult{}, &RejectionError{Message: "Challenge is not active"}
	}

	now := m.now()
	if e.LastCheckInDate != nil && streak.SameDay(*e.LastCheckInDate, now, m.loc) {
		return CheckInResult{}, &RejectionError{Message: "Already checked in today"}
	}
	if err := challenge.CheckIn(e, now, m.loc); err != nil {
		return CheckInResult{}, &RejectionError{Message: err.Error()}
	}

	ch, ok := m.findChallenge(challengeID)
	if !ok {
		return CheckInResult{}, fmt.Errorf("challenge %s missing from catalog", challengeID)
	}

	gained := challenge.DailyXP(ch.Difficulty)
	if e.State == challenge.StateCompleted {
		gained += ch.XPReward
	}

	p := m.profile(userID)
	p.XP += gained
	if e.CurrentStreak > p.Streak {
		p.Streak = e.CurrentStreak
	}

	result := CheckInResult{XPGained: gained}
	if newLevel := p.XP/xp.DefaultLevelSpan + 1; newLevel > p.Level {
		p.Level = newLevel
		result.LeveledUp = true
		result.NewLevel = newLevel
	}
	return result, nil
}

func (m *memoryClient) ListUserBadges(_ context.Context, userID string) ([]BadgeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BadgeRecord, len(m.badges[userID]))
	copy(out, m.badges[userID])
	return out, nil
}

func (m *memoryClient) ListLeaderboard(_ context.Context) ([]LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]LeaderboardEntry, 0, len(m.profiles))
	for userID, p := range m.profiles {
		completed := 0
		for _, e := range m.enrollments[userID] {
			if e.State == challenge.StateCompleted {
				completed++
			}
		}
		entries = append(entries, LeaderboardEntry{
			Username:            p.Username,
			XP:                  p.XP,
			Level:               p.Level,
			CompletedChallenges: completed,
			BadgesEarned:        len(m.badges[userID]),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].XP > entries[j].XP })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (m *memoryClient) findChallenge(id string) (challenge.Challenge, bool) {
	for _, ch := range m.catalog {
		if ch.ID == id {
			return ch, true
		}
	}
	return challenge.Challenge{}, false
}
