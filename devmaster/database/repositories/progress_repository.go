package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProgressRepository tracks per-challenge attempts and the per-day
// completion rows that gate the daily bonus.
type ProgressRepository interface {
	RecordAttempt(ctx context.Context, userID, challengeID uuid.UUID, completed bool, now time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserProgress, error)
	CompletedCount(ctx context.Context, userID uuid.UUID) (int, error)
	TotalAttempts(ctx context.Context, userID uuid.UUID) (int, error)
	MarkDailyCompleted(ctx context.Context, userID uuid.UUID, day, now time.Time) (bool, error)
	DailyCompleted(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error)
}

type progressRepository struct {
	db *bun.DB
}

func NewProgressRepository(db *bun.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// RecordAttempt bumps the attempt counter, creating the row on first
// contact, and on a completed attempt flips the one-way completed flag.
// Returns true only for the first completion of the challenge, which is the
// signal points and streaks key off.
func (r *progressRepository) RecordAttempt(ctx context.Context, userID, challengeID uuid.UUID, completed bool, now time.Time) (bool, error) {
	progress := &models.UserProgress{
		UserID:      userID,
		ChallengeID: challengeID,
		Attempts:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Upsert keeps the attempt counter monotonic even when two submissions
	// for the same challenge race on row creation.
	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (user_id, challenge_id) DO UPDATE").
		Set("attempts = up.attempts + 1").
		Set("updated_at = ?", now).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}

	if !completed {
		return false, nil
	}

	// The completed = false guard makes re-completions a no-op, so the
	// first-completion signal fires exactly once per (user, challenge).
	res, err := r.db.NewUpdate().
		Model((*models.UserProgress)(nil)).
		Set("completed = TRUE").
		Set("completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("user_id = ? AND challenge_id = ? AND completed = FALSE", userID, challengeID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark completion: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserProgress, error) {
	var rows []*models.UserProgress
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Scan(ctx)
	return rows, err
}

func (r *progressRepository) CompletedCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*models.UserProgress)(nil)).
		Where("user_id = ? AND completed", userID).
		Count(ctx)
}

func (r *progressRepository) TotalAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.db.NewSelect().
		Model((*models.UserProgress)(nil)).
		ColumnExpr("COALESCE(SUM(attempts), 0)").
		Where("user_id = ?", userID).
		Scan(ctx, &total)
	return total, err
}

// MarkDailyCompleted inserts the (user, day) row and reports whether this
// call was the one that created it. The unique constraint is what makes the
// daily bonus a strictly once-per-day credit.
func (r *progressRepository) MarkDailyCompleted(ctx context.Context, userID uuid.UUID, day, now time.Time) (bool, error) {
	row := &models.UserDailyProgress{
		UserID:        userID,
		ChallengeDate: day,
		Completed:     true,
		CompletedAt:   &now,
	}
	res, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, challenge_date) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark daily completion: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *progressRepository) DailyCompleted(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	return r.db.NewSelect().
		Model((*models.UserDailyProgress)(nil)).
		Where("user_id = ? AND challenge_date = ? AND completed", userID, day.Format("2006-01-02")).
		Exists(ctx)
}
