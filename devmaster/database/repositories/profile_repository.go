package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrProfileNotFound = errors.New("profile not found")

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	UserID              uuid.UUID `bun:"id" json:"user_id"`
	Name                string    `bun:"name" json:"name"`
	Level               int       `bun:"level" json:"level"`
	CompletedChallenges int       `bun:"completed_challenges" json:"completed_challenges"`
}

type ProfileRepository interface {
	Ensure(ctx context.Context, userID uuid.UUID, name string) error
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	AddPoints(ctx context.Context, userID uuid.UUID, points int) (int, error)
	SetLevel(ctx context.Context, userID uuid.UUID, level int) error
	UpdateStreak(ctx context.Context, userID uuid.UUID, current, longest int, day time.Time) error
	Ranking(ctx context.Context, limit int) ([]RankingEntry, error)
}

type profileRepository struct {
	db *bun.DB
}

func NewProfileRepository(db *bun.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Ensure(ctx context.Context, userID uuid.UUID, name string) error {
	profile := &models.Profile{
		ID:        userID,
		Name:      name,
		Level:     1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(profile).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile := new(models.Profile)
	err := r.db.NewSelect().
		Model(profile).
		Where("id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return profile, err
}

// AddPoints is a relative update so concurrent awards can't clobber each
// other; the new total comes back for the level recalculation.
func (r *profileRepository) AddPoints(ctx context.Context, userID uuid.UUID, points int) (int, error) {
	var total int
	_, err := r.db.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("points = points + ?", points).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Returning("points").
		Exec(ctx, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add points: %w", err)
	}
	return total, nil
}

func (r *profileRepository) SetLevel(ctx context.Context, userID uuid.UUID, level int) error {
	_, err := r.db.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("level = ?", level).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ? AND level < ?", userID, level).
		Exec(ctx)
	return err
}

func (r *profileRepository) UpdateStreak(ctx context.Context, userID uuid.UUID, current, longest int, day time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("current_streak = ?", current).
		Set("longest_streak = GREATEST(longest_streak, ?)", longest).
		Set("last_completed_date = ?", day.Format("2006-01-02")).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func (r *profileRepository) Ranking(ctx context.Context, limit int) ([]RankingEntry, error) {
	var entries []RankingEntry
	err := r.db.NewSelect().
		TableExpr("profiles AS p").
		ColumnExpr("p.id, p.name, p.level").
		ColumnExpr("COUNT(up.id) AS completed_challenges").
		Join("LEFT JOIN user_progress AS up ON up.user_id = p.id AND up.completed").
		GroupExpr("p.id, p.name, p.level").
		OrderExpr("completed_challenges DESC, p.level DESC, p.name ASC").
		Limit(limit).
		Scan(ctx, &entries)
	return entries, err
}
