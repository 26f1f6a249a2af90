// Package challenge holds the per-user challenge state machine:
// available → active ⇄ checked-in-today → completed.
package challenge

import (
	"errors"
	"time"

	"github.com/dakshkumar96/Reclaim-sub000/internal/streak"
)

var (
	// ErrAlreadyActive indicates a start on a challenge that is already active or completed.
	ErrAlreadyActive = errors.New("challenge already active")
	// ErrAlreadyCheckedIn indicates a second check-in within the same calendar day.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrNotActive indicates a check-in on a challenge the user has not started.
	ErrNotActive = errors.New("challenge is not active")
)

// Start validates that a new enrollment may be created for ch and returns it
// in the active state. existing is the user's current enrollment for the
// challenge, or nil when there is none.
func Start(ch Challenge, existing *Enrollment) (*Enrollment, error) {
	if existing != nil && existing.State != StateAvailable {
		return nil, ErrAlreadyActive
	}
	return &Enrollment{
		ChallengeID:  ch.ID,
		State:        StateActive,
		TotalDays:    ch.DurationDays,
		ProgressDays: 0,
	}, nil
}

// CheckIn applies one daily check-in to the enrollment in place: it bumps
// progress, recomputes the streak, and auto-completes the challenge once
// progress reaches the total. Legal at most once per calendar day in loc.
func CheckIn(e *Enrollment, now time.Time, loc *time.Location) error {
	if e == nil || (e.State != StateActive && e.State != StateCheckedInToday) {
		return ErrNotActive
	}
	if e.LastCheckInDate != nil && streak.SameDay(*e.LastCheckInDate, now, loc) {
		return ErrAlreadyCheckedIn
	}

	e.CurrentStreak = streak.Update(e.LastCheckInDate, now, e.CurrentStreak, loc)
	if e.ProgressDays < e.TotalDays {
		e.ProgressDays++
	}
	checkedAt := now
	e.LastCheckInDate = &checkedAt
	e.CheckedInToday = true

	if e.ProgressDays >= e.TotalDays {
		e.State = StateCompleted
	} else {
		e.State = StateCheckedInToday
	}
	return nil
}

// RollOver clears the checked-in-today flag when the stored check-in date no
// longer falls on the current calendar day.
func RollOver(e *Enrollment, now time.Time, loc *time.Location) {
	if e == nil || !e.CheckedInToday {
		return
	}
	if e.LastCheckInDate == nil || !streak.SameDay(*e.LastCheckInDate, now, loc) {
		e.CheckedInToday = false
		if e.State == StateCheckedInToday {
			e.State = StateActive
		}
	}
}
