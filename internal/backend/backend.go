// Package backend talks to the authoritative Reclaim habit backend. The
// progression tier never owns persistent state; everything here reads or
// mutates the source of truth on the other side of a network round-trip.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
)

// ErrNotFound indicates the requested record does not exist upstream.
var ErrNotFound = errors.New("record not found")

// RejectionError carries a server-side success:false response. The message is
// preserved verbatim so it can surface in the user-facing toast.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return "request rejected by backend"
	}
	return e.Message
}

// IsRejection reports whether err is an authoritative rejection rather than a
// transport failure, and returns the server message when it is.
func IsRejection(err error) (string, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Message, true
	}
	return "", false
}

// Profile is the authoritative progression record for one user.
type Profile struct {
	UserID      string      `json:"user_id" firestore:"user_id"`
	Username    string      `json:"username" firestore:"username"`
	XP          int         `json:"xp" firestore:"xp"`
	Level       int         `json:"level" firestore:"level"`
	Streak      int         `json:"streak" firestore:"streak"`
	CreatedAt   time.Time   `json:"created_at" firestore:"created_at"`
	LevelFloors map[int]int `json:"level_floors,omitempty" firestore:"-"`
}

// StartResult is the backend's answer to a start-challenge request.
type StartResult struct {
	UserChallengeID string `json:"user_challenge_id"`
}

// CheckInResult is the backend's answer to a daily check-in.
type CheckInResult struct {
	XPGained  int  `json:"xp_gained"`
	LeveledUp bool `json:"leveled_up"`
	NewLevel  int  `json:"new_level,omitempty"`
}

// BadgeRecord is an earned badge as recorded upstream.
type BadgeRecord struct {
	BadgeID  string    `json:"badge_id" firestore:"badge_id"`
	EarnedAt time.Time `json:"earned_at" firestore:"earned_at"`
}

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Username            string `json:"username" firestore:"username"`
	XP                  int    `json:"xp" firestore:"xp"`
	Level               int    `json:"level" firestore:"level"`
	Rank                int    `json:"rank" firestore:"-"`
	CompletedChallenges int    `json:"completed_challenges" firestore:"completed_challenges"`
	BadgesEarned        int    `json:"badges_earned" firestore:"badges_earned"`
}

// Client is the authoritative backend collaborator. Transport, auth and retry
// policy live behind this interface; callers only distinguish success,
// rejection (RejectionError) and transport failure (any other error).
type Client interface {
	FetchProfile(ctx context.Context, userID string) (Profile, error)
	ListChallenges(ctx context.Context) ([]challenge.Challenge, error)
	ListActiveChallenges(ctx context.Context, userID string) ([]*challenge.Enrollment, error)
	StartChallenge(ctx context.Context, userID, challengeID string) (StartResult, error)
	CheckIn(ctx context.Context, userID, challengeID string) (CheckInResult, error)
	ListUserBadges(ctx context.Context, userID string) ([]BadgeRecord, error)
	ListLeaderboard(ctx context.Context) ([]LeaderboardEntry, error)
}
