package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AchievementRepository interface {
	ListAll(ctx context.Context) ([]*models.Achievement, error)
	ListWithStatus(ctx context.Context, userID uuid.UUID) ([]models.AchievementWithStatus, error)
	UnlockedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	Unlock(ctx context.Context, userID, achievementID uuid.UUID, now time.Time) (bool, error)
}

type achievementRepository struct {
	db *bun.DB
}

func NewAchievementRepository(db *bun.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

// ListAll returns achievements in a stable order so evaluation unlocks them
// reproducibly: easiest requirement first, id as tiebreak.
func (r *achievementRepository) ListAll(ctx context.Context) ([]*models.Achievement, error) {
	var achievements []*models.Achievement
	err := r.db.NewSelect().
		Model(&achievements).
		Order("requirement_value ASC", "id ASC").
		Scan(ctx)
	return achievements, err
}

func (r *achievementRepository) ListWithStatus(ctx context.Context, userID uuid.UUID) ([]models.AchievementWithStatus, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var unlocked []*models.UserAchievement
	if err := r.db.NewSelect().
		Model(&unlocked).
		Where("user_id = ?", userID).
		Scan(ctx); err != nil {
		return nil, err
	}

	unlockedAt := make(map[uuid.UUID]time.Time, len(unlocked))
	for _, ua := range unlocked {
		unlockedAt[ua.AchievementID] = ua.UnlockedAt
	}

	result := make([]models.AchievementWithStatus, 0, len(all))
	for _, a := range all {
		entry := models.AchievementWithStatus{Achievement: *a}
		if at, ok := unlockedAt[a.ID]; ok {
			entry.Unlocked = true
			t := at
			entry.UnlockedAt = &t
		}
		result = append(result, entry)
	}
	return result, nil
}

func (r *achievementRepository) UnlockedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []*models.UserAchievement
	err := r.db.NewSelect().
		Model(&rows).
		Column("achievement_id").
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		ids[row.AchievementID] = true
	}
	return ids, nil
}

// Unlock inserts the grant and reports whether this call won. The unique
// (user_id, achievement_id) pair absorbs concurrent evaluations.
func (r *achievementRepository) Unlock(ctx context.Context, userID, achievementID uuid.UUID, now time.Time) (bool, error) {
	ua := &models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    now,
	}
	res, err := r.db.NewInsert().
		Model(ua).
		On("CONFLICT (user_id, achievement_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
