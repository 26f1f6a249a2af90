package xp

import "testing"

func TestLevelProgress(t *testing.T) {
	tests := []struct {
		name  string
		xp    int
		floor int
		ceil  int
		want  float64
	}{
		{"empty bar", 0, 0, 100, 0},
		{"half way", 50, 0, 100, 50},
		{"at ceiling", 100, 0, 100, 100},
		{"above ceiling clamps", 130, 0, 100, 100},
		{"below floor clamps", 90, 100, 200, 0},
		{"degenerate equal bounds", 50, 100, 100, 100},
		{"degenerate inverted bounds", 50, 200, 100, 100},
		{"mid level two", 150, 100, 200, 50},
	}
	for _, tt := range tests {
		got := LevelProgress(tt.xp, tt.floor, tt.ceil)
		if got != tt.want {
			t.Fatalf("%s: LevelProgress(%d, %d, %d) = %v, want %v",
				tt.name, tt.xp, tt.floor, tt.ceil, got, tt.want)
		}
		if got < 0 || got > 100 {
			t.Fatalf("%s: result %v outside [0,100]", tt.name, got)
		}
	}
}

func TestThresholdsBounds(t *testing.T) {
	thresholds := NewThresholds(map[int]int{1: 0, 2: 120, 3: 300})

	floor, ceil := thresholds.Bounds(2)
	if floor != 120 || ceil != 300 {
		t.Fatalf("level 2 bounds = (%d, %d), want (120, 300)", floor, ceil)
	}

	// Level 3 has no reported ceiling; falls back to default spacing.
	floor, ceil = thresholds.Bounds(3)
	if floor != 300 || ceil != 400 {
		t.Fatalf("level 3 bounds = (%d, %d), want (300, 400)", floor, ceil)
	}

	// No thresholds at all: pure default spacing.
	empty := NewThresholds(nil)
	floor, ceil = empty.Bounds(4)
	if floor != 300 || ceil != 400 {
		t.Fatalf("default level 4 bounds = (%d, %d), want (300, 400)", floor, ceil)
	}

	// Garbage level clamps to 1.
	floor, ceil = empty.Bounds(0)
	if floor != 0 || ceil != 100 {
		t.Fatalf("level 0 bounds = (%d, %d), want (0, 100)", floor, ceil)
	}
}
