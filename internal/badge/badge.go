package badge

// Snapshot carries the progression facts badge criteria are evaluated against.
type Snapshot struct {
	XP                  int
	Level               int
	Streak              int
	CompletedChallenges int
}

// Badge describes an achievement and the criteria that unlock it.
type Badge struct {
	ID       string
	Name     string
	Icon     string
	Category string
	Unlocks  func(Snapshot) bool
}

// Evaluator determines newly earned badges from a progression snapshot.
type Evaluator struct {
	badges []Badge
}

// NewEvaluator builds an evaluator over the given badge set. Pass Catalog()
// for the standard Reclaim badges.
func NewEvaluator(badges []Badge) *Evaluator {
	copied := make([]Badge, len(badges))
	copy(copied, badges)
	return &Evaluator{badges: copied}
}

// Evaluate returns the badges whose criteria hold against the snapshot and
// that are not already in earned. It is pure and idempotent: a second call
// with the same snapshot and an earned set updated with the first call's
// result returns nothing.
func (e *Evaluator) Evaluate(s Snapshot, earned map[string]bool) []Badge {
	var newly []Badge
	for _, b := range e.badges {
		if earned[b.ID] {
			continue
		}
		if b.Unlocks != nil && b.Unlocks(s) {
			newly = append(newly, b)
		}
	}
	return newly
}

// Catalog returns the standard badge set with its unlock thresholds.
func Catalog() []Badge {
	return []Badge{
		{ID: "first-checkin", Name: "First Step", Icon: "play-circle", Category: "challenge",
			Unlocks: func(s Snapshot) bool { return s.Streak >= 1 || s.XP > 0 }},
		{ID: "streak-3", Name: "Warming Up", Icon: "fire", Category: "streak",
			Unlocks: func(s Snapshot) bool { return s.Streak >= 3 }},
		{ID: "streak-7", Name: "On Fire", Icon: "fire-fill", Category: "streak",
			Unlocks: func(s Snapshot) bool { return s.Streak >= 7 }},
		{ID: "streak-30", Name: "Unstoppable", Icon: "crown", Category: "streak",
			Unlocks: func(s Snapshot) bool { return s.Streak >= 30 }},
		{ID: "xp-100", Name: "Centurion", Icon: "star", Category: "xp",
			Unlocks: func(s Snapshot) bool { return s.XP >= 100 }},
		{ID: "xp-500", Name: "Grinder", Icon: "star-fill", Category: "xp",
			Unlocks: func(s Snapshot) bool { return s.XP >= 500 }},
		{ID: "xp-1000", Name: "Legend", Icon: "trophy", Category: "xp",
			Unlocks: func(s Snapshot) bool { return s.XP >= 1000 }},
		{ID: "level-5", Name: "Climber", Icon: "lightning", Category: "xp",
			Unlocks: func(s Snapshot) bool { return s.Level >= 5 }},
		{ID: "level-10", Name: "Summit", Icon: "shield-check", Category: "xp",
			Unlocks: func(s Snapshot) bool { return s.Level >= 10 }},
		{ID: "first-complete", Name: "Finisher", Icon: "check-circle", Category: "challenge",
			Unlocks: func(s Snapshot) bool { return s.CompletedChallenges >= 1 }},
		{ID: "complete-5", Name: "Habit Architect", Icon: "trophy", Category: "challenge",
			Unlocks: func(s Snapshot) bool { return s.CompletedChallenges >= 5 }},
	}
}
