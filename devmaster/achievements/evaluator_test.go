package achievements

import (
	"context"
	"testing"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAchievementRepo struct {
	all      []*models.Achievement
	unlocked map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeAchievementRepo(all ...*models.Achievement) *fakeAchievementRepo {
	return &fakeAchievementRepo{
		all:      all,
		unlocked: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (f *fakeAchievementRepo) ListAll(context.Context) ([]*models.Achievement, error) {
	return f.all, nil
}

func (f *fakeAchievementRepo) ListWithStatus(context.Context, uuid.UUID) ([]models.AchievementWithStatus, error) {
	return nil, nil
}

func (f *fakeAchievementRepo) UnlockedIDs(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	ids := make(map[uuid.UUID]bool)
	for id := range f.unlocked[userID] {
		ids[id] = true
	}
	return ids, nil
}

func (f *fakeAchievementRepo) Unlock(_ context.Context, userID, achievementID uuid.UUID, _ time.Time) (bool, error) {
	if f.unlocked[userID] == nil {
		f.unlocked[userID] = make(map[uuid.UUID]bool)
	}
	if f.unlocked[userID][achievementID] {
		return false, nil
	}
	f.unlocked[userID][achievementID] = true
	return true, nil
}

type fakeProgressRepo struct {
	completed int
	attempts  int
}

func (f *fakeProgressRepo) RecordAttempt(context.Context, uuid.UUID, uuid.UUID, bool, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeProgressRepo) ListByUser(context.Context, uuid.UUID) ([]*models.UserProgress, error) {
	return nil, nil
}

func (f *fakeProgressRepo) CompletedCount(context.Context, uuid.UUID) (int, error) {
	return f.completed, nil
}

func (f *fakeProgressRepo) TotalAttempts(context.Context, uuid.UUID) (int, error) {
	return f.attempts, nil
}

func (f *fakeProgressRepo) MarkDailyCompleted(context.Context, uuid.UUID, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeProgressRepo) DailyCompleted(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

type fakeProfileRepo struct {
	profile *models.Profile
}

func (f *fakeProfileRepo) Ensure(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeProfileRepo) Get(context.Context, uuid.UUID) (*models.Profile, error) {
	if f.profile == nil {
		return nil, repositories.ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeProfileRepo) AddPoints(context.Context, uuid.UUID, int) (int, error) { return 0, nil }

func (f *fakeProfileRepo) SetLevel(context.Context, uuid.UUID, int) error { return nil }

func (f *fakeProfileRepo) UpdateStreak(context.Context, uuid.UUID, int, int, time.Time) error {
	return nil
}

func (f *fakeProfileRepo) Ranking(context.Context, int) ([]repositories.RankingEntry, error) {
	return nil, nil
}

func defs() []*models.Achievement {
	return []*models.Achievement{
		{
			ID:               uuid.New(),
			Name:             "First Steps",
			RequirementType:  models.RequirementChallengesCompleted,
			RequirementValue: 1,
		},
		{
			ID:               uuid.New(),
			Name:             "Problem Solver",
			RequirementType:  models.RequirementChallengesCompleted,
			RequirementValue: 5,
		},
		{
			ID:               uuid.New(),
			Name:             "Persistent",
			RequirementType:  models.RequirementTotalAttempts,
			RequirementValue: 25,
		},
		{
			ID:               uuid.New(),
			Name:             "Rising Star",
			RequirementType:  models.RequirementLevelReached,
			RequirementValue: 3,
		},
	}
}

func TestEvaluateGrantsQualifiedAchievements(t *testing.T) {
	achievements := newFakeAchievementRepo(defs()...)
	progress := &fakeProgressRepo{completed: 5, attempts: 12}
	profiles := &fakeProfileRepo{profile: &models.Profile{Level: 2}}
	evaluator := NewEvaluator(achievements, progress, profiles)

	userID := uuid.New()
	granted, err := evaluator.Evaluate(context.Background(), userID, time.Now().UTC())
	require.NoError(t, err)

	names := make([]string, 0, len(granted))
	for _, a := range granted {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"First Steps", "Problem Solver"}, names)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	achievements := newFakeAchievementRepo(defs()...)
	progress := &fakeProgressRepo{completed: 1, attempts: 1}
	profiles := &fakeProfileRepo{profile: &models.Profile{Level: 1}}
	evaluator := NewEvaluator(achievements, progress, profiles)

	userID := uuid.New()
	now := time.Now().UTC()

	granted, err := evaluator.Evaluate(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Len(t, granted, 1)

	granted, err = evaluator.Evaluate(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Empty(t, granted)
}

func TestEvaluateWithoutProfile(t *testing.T) {
	achievements := newFakeAchievementRepo(defs()...)
	progress := &fakeProgressRepo{completed: 0, attempts: 3}
	profiles := &fakeProfileRepo{}
	evaluator := NewEvaluator(achievements, progress, profiles)

	granted, err := evaluator.Evaluate(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, granted)
}

func TestEvaluateLevelRequirement(t *testing.T) {
	achievements := newFakeAchievementRepo(defs()...)
	progress := &fakeProgressRepo{}
	profiles := &fakeProfileRepo{profile: &models.Profile{Level: 4}}
	evaluator := NewEvaluator(achievements, progress, profiles)

	granted, err := evaluator.Evaluate(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, "Rising Star", granted[0].Name)
}
