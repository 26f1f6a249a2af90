package challenge

import "time"

// State tracks where a user stands with one challenge.
type State string

const (
	StateAvailable      State = "available"
	StateActive         State = "active"
	StateCheckedInToday State = "checked_in_today"
	StateCompleted      State = "completed"
)

// Challenge is a catalog entry users can enroll in.
type Challenge struct {
	ID           string `json:"id" firestore:"id"`
	Title        string `json:"title" firestore:"title"`
	Description  string `json:"description,omitempty" firestore:"description"`
	Difficulty   string `json:"difficulty" firestore:"difficulty"`
	Category     string `json:"category,omitempty" firestore:"category"`
	XPReward     int    `json:"xp_reward" firestore:"xp_reward"`
	DurationDays int    `json:"duration_days" firestore:"duration_days"`
}

// Enrollment is one user's relationship to one challenge.
type Enrollment struct {
	ChallengeID     string     `json:"challenge_id" firestore:"challenge_id"`
	UserChallengeID string     `json:"user_challenge_id" firestore:"user_challenge_id"`
	State           State      `json:"state" firestore:"state"`
	ProgressDays    int        `json:"progress_days" firestore:"progress_days"`
	TotalDays       int        `json:"total_days" firestore:"total_days"`
	CurrentStreak   int        `json:"current_streak" firestore:"current_streak"`
	CheckedInToday  bool       `json:"checked_in_today" firestore:"checked_in_today"`
	LastCheckInDate *time.Time `json:"last_check_in_date,omitempty" firestore:"last_check_in_date"`
}

// Clone returns a deep copy of the enrollment.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	copied := *e
	if e.LastCheckInDate != nil {
		t := *e.LastCheckInDate
		copied.LastCheckInDate = &t
	}
	return &copied
}

// DailyXP returns the XP a single check-in is worth for the given difficulty.
func DailyXP(difficulty string) int {
	switch difficulty {
	case "easy":
		return 5
	case "hard":
		return 15
	default:
		return 10
	}
}
