// Package achievements checks a user's aggregate stats against the unlock
// rules after each successful submission.
package achievements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/google/uuid"
)

type Evaluator struct {
	achievements repositories.AchievementRepository
	progress     repositories.ProgressRepository
	profiles     repositories.ProfileRepository
}

func NewEvaluator(
	achievements repositories.AchievementRepository,
	progress repositories.ProgressRepository,
	profiles repositories.ProfileRepository,
) *Evaluator {
	return &Evaluator{
		achievements: achievements,
		progress:     progress,
		profiles:     profiles,
	}
}

type stats struct {
	completed int
	attempts  int
	level     int
}

func (s stats) meets(a *models.Achievement) bool {
	switch a.RequirementType {
	case models.RequirementChallengesCompleted:
		return s.completed >= a.RequirementValue
	case models.RequirementTotalAttempts:
		return s.attempts >= a.RequirementValue
	case models.RequirementLevelReached:
		return s.level >= a.RequirementValue
	default:
		return false
	}
}

// Evaluate unlocks every achievement the user now qualifies for and
// returns the ones newly granted by this call. Already unlocked rules are
// skipped, so evaluating twice in a row returns nothing the second time.
func (e *Evaluator) Evaluate(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Achievement, error) {
	all, err := e.achievements.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	unlocked, err := e.achievements.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}

	s, err := e.collectStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	var granted []*models.Achievement
	for _, a := range all {
		if unlocked[a.ID] || !s.meets(a) {
			continue
		}
		won, err := e.achievements.Unlock(ctx, userID, a.ID, now)
		if err != nil {
			return granted, err
		}
		if won {
			granted = append(granted, a)
		}
	}
	return granted, nil
}

func (e *Evaluator) collectStats(ctx context.Context, userID uuid.UUID) (stats, error) {
	completed, err := e.progress.CompletedCount(ctx, userID)
	if err != nil {
		return stats{}, fmt.Errorf("failed to count completions: %w", err)
	}
	attempts, err := e.progress.TotalAttempts(ctx, userID)
	if err != nil {
		return stats{}, fmt.Errorf("failed to sum attempts: %w", err)
	}
	level := 1
	profile, err := e.profiles.Get(ctx, userID)
	if err == nil {
		level = profile.Level
	} else if !errors.Is(err, repositories.ErrProfileNotFound) {
		return stats{}, err
	}
	return stats{completed: completed, attempts: attempts, level: level}, nil
}
