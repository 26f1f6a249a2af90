package xp

// DefaultLevelSpan is the XP spacing assumed between levels when the backend
// does not report explicit thresholds.
const DefaultLevelSpan = 100

// LevelProgress returns the fill percentage of the XP bar for a level whose
// boundaries are levelFloorXP and levelCeilXP. The result is clamped to
// [0, 100]; backend-reported XP can transiently exceed the ceiling before the
// matching level-up is processed. A degenerate level (ceiling at or below the
// floor) reads as full.
func LevelProgress(xp, levelFloorXP, levelCeilXP int) float64 {
	if levelCeilXP <= levelFloorXP {
		return 100
	}
	pct := float64(xp-levelFloorXP) / float64(levelCeilXP-levelFloorXP) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Thresholds resolves per-level XP boundaries reported by the backend.
// Levels the backend never described fall back to DefaultLevelSpan spacing.
type Thresholds struct {
	floors map[int]int
}

// NewThresholds builds a Thresholds lookup from a level → floor-XP mapping.
func NewThresholds(floors map[int]int) Thresholds {
	copied := make(map[int]int, len(floors))
	for level, floor := range floors {
		copied[level] = floor
	}
	return Thresholds{floors: copied}
}

// Bounds returns the XP floor and ceiling for the given level.
func (t Thresholds) Bounds(level int) (floor, ceil int) {
	if level < 1 {
		level = 1
	}
	floor, ok := t.floors[level]
	if !ok {
		floor = (level - 1) * DefaultLevelSpan
	}
	ceil, ok = t.floors[level+1]
	if !ok {
		ceil = floor + DefaultLevelSpan
	}
	return floor, ceil
}
