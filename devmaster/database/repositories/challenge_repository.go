package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"
)

var ErrChallengeNotFound = errors.New("challenge not found")

const challengeCacheSize = 256

// ChallengeRepository reads the challenge catalogue. GetByID returns the
// full row including the hidden test fragment; only the grading path may
// use it, the API layer works from stripped DTOs.
type ChallengeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	List(ctx context.Context) ([]*models.Challenge, error)
	GetDaily(ctx context.Context, day time.Time) (*models.DailyChallenge, error)
	CreateDaily(ctx context.Context, daily *models.DailyChallenge) error
}

type challengeRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

func NewChallengeRepository(db *bun.DB) ChallengeRepository {
	// Size can't fail with a positive constant.
	cache, _ := lru.New(challengeCacheSize)
	return &challengeRepository{db: db, cache: cache}
}

func (r *challengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cached.(*models.Challenge), nil
	}

	challenge := new(models.Challenge)
	err := r.db.NewSelect().
		Model(challenge).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}

	r.cache.Add(id, challenge)
	return challenge, nil
}

func (r *challengeRepository) List(ctx context.Context) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	err := r.db.NewSelect().
		Model(&challenges).
		Order("order_index ASC").
		Scan(ctx)
	return challenges, err
}

func (r *challengeRepository) GetDaily(ctx context.Context, day time.Time) (*models.DailyChallenge, error) {
	daily := new(models.DailyChallenge)
	err := r.db.NewSelect().
		Model(daily).
		Where("challenge_date = ?", day.Format("2006-01-02")).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return daily, err
}

func (r *challengeRepository) CreateDaily(ctx context.Context, daily *models.DailyChallenge) error {
	_, err := r.db.NewInsert().
		Model(daily).
		On("CONFLICT (challenge_date) DO NOTHING").
		Exec(ctx)
	return err
}
