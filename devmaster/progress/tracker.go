// Package progress maintains per-challenge attempt history and the daily
// completion streak on top of the progress and profile repositories.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/google/uuid"
)

type Tracker struct {
	progress repositories.ProgressRepository
	profiles repositories.ProfileRepository
}

func NewTracker(progress repositories.ProgressRepository, profiles repositories.ProfileRepository) *Tracker {
	return &Tracker{progress: progress, profiles: profiles}
}

// RecordAttempt bumps the attempt counter and reports whether this attempt
// was the user's first completion of the challenge.
func (t *Tracker) RecordAttempt(ctx context.Context, userID, challengeID uuid.UUID, completed bool, now time.Time) (bool, error) {
	return t.progress.RecordAttempt(ctx, userID, challengeID, completed, now)
}

// sameDay and nextDay compare calendar days in UTC; the streak ignores
// time of day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func nextDay(a, b time.Time) bool {
	return sameDay(a.UTC().AddDate(0, 0, 1), b)
}

// streakTransition computes the new streak counters after a completion on
// day. A completion on the day after the last one extends the streak,
// a repeat on the same day changes nothing, anything else restarts at 1.
func streakTransition(current, longest int, last *time.Time, day time.Time) (int, int, bool) {
	switch {
	case last != nil && sameDay(*last, day):
		return current, longest, false
	case last != nil && nextDay(*last, day):
		current++
	default:
		current = 1
	}
	if current > longest {
		longest = current
	}
	return current, longest, true
}

// AdvanceStreak updates the daily streak for a completion on day and
// returns the new current streak.
func (t *Tracker) AdvanceStreak(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	profile, err := t.profiles.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load profile for streak: %w", err)
	}

	current, longest, changed := streakTransition(profile.CurrentStreak, profile.LongestStreak, profile.LastCompletedDate, day)
	if !changed {
		return current, nil
	}
	if err := t.profiles.UpdateStreak(ctx, userID, current, longest, day); err != nil {
		return 0, fmt.Errorf("failed to update streak: %w", err)
	}
	return current, nil
}

// MarkDailyCompleted claims today's bonus slot and reports whether this
// call won it.
func (t *Tracker) MarkDailyCompleted(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	return t.progress.MarkDailyCompleted(ctx, userID, day, day)
}

// DailyCompleted reports whether the user already solved the pinned
// challenge on day.
func (t *Tracker) DailyCompleted(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	return t.progress.DailyCompleted(ctx, userID, day)
}

// Summary aggregates a user's progress counters for the profile endpoints.
type Summary struct {
	CompletedChallenges int `json:"completed_challenges"`
	TotalAttempts       int `json:"total_attempts"`
}

func (t *Tracker) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	completed, err := t.progress.CompletedCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	attempts, err := t.progress.TotalAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Summary{CompletedChallenges: completed, TotalAttempts: attempts}, nil
}
