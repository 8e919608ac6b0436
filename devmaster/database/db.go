package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"log/slog"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout = 5 * time.Second
	defaultMaxRetries  = 3
	retryInterval      = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	SSLMode      string `toml:"ssl_mode"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(retryInterval)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	return &DB{pool: pool, bunDB: newBunDB(cfg)}, nil
}

func buildConnString(cfg DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode,
	)
}

func newBunDB(cfg DBConfig) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(buildConnString(cfg))))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Close() {
	if db.bunDB != nil {
		_ = db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateTables creates the application schema and the constraints the
// gamification rules depend on. The unique indexes are not an optimization:
// progress upserts, the daily bonus gate and webhook dedup all rely on them.
func (db *DB) CreateTables(ctx context.Context) error {
	tables := []interface{}{
		(*models.UserEnergy)(nil),
		(*models.Challenge)(nil),
		(*models.DailyChallenge)(nil),
		(*models.Profile)(nil),
		(*models.UserProgress)(nil),
		(*models.UserDailyProgress)(nil),
		(*models.Achievement)(nil),
		(*models.UserAchievement)(nil),
		(*models.EnergyPurchase)(nil),
		(*models.ProcessedPayment)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_progress_user_challenge ON user_progress(user_id, challenge_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_daily_progress_user_date ON user_daily_progress(user_id, challenge_date);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_achievements_user_achievement ON user_achievements(user_id, achievement_id);",
		"CREATE INDEX IF NOT EXISTS idx_user_progress_completed ON user_progress(user_id) WHERE completed;",
		"CREATE INDEX IF NOT EXISTS idx_user_energy_regen ON user_energy(last_regeneration_at) WHERE current_energy < max_energy;",
		"CREATE INDEX IF NOT EXISTS idx_challenges_order ON challenges(order_index);",
		"CREATE INDEX IF NOT EXISTS idx_energy_purchases_user ON energy_purchases(user_id);",
	}

	for _, idx := range indexes {
		if _, err := db.pool.Exec(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// SeedAchievements inserts the default unlock rules; reruns are no-ops.
func (db *DB) SeedAchievements(ctx context.Context) error {
	defaults := []*models.Achievement{
		{
			ID:               uuid.MustParse("0c0c2f3e-0001-4c6e-9a51-9a8fbb100001"),
			Name:             "First Steps",
			Description:      "Complete your first challenge",
			Icon:             "footprints",
			RequirementType:  models.RequirementChallengesCompleted,
			RequirementValue: 1,
		},
		{
			ID:               uuid.MustParse("0c0c2f3e-0002-4c6e-9a51-9a8fbb100002"),
			Name:             "Problem Solver",
			Description:      "Complete 5 challenges",
			Icon:             "puzzle",
			RequirementType:  models.RequirementChallengesCompleted,
			RequirementValue: 5,
		},
		{
			ID:               uuid.MustParse("0c0c2f3e-0003-4c6e-9a51-9a8fbb100003"),
			Name:             "Code Master",
			Description:      "Complete 10 challenges",
			Icon:             "crown",
			RequirementType:  models.RequirementChallengesCompleted,
			RequirementValue: 10,
		},
		{
			ID:               uuid.MustParse("0c0c2f3e-0004-4c6e-9a51-9a8fbb100004"),
			Name:             "Persistent",
			Description:      "Make 25 attempts across all challenges",
			Icon:             "hammer",
			RequirementType:  models.RequirementTotalAttempts,
			RequirementValue: 25,
		},
		{
			ID:               uuid.MustParse("0c0c2f3e-0005-4c6e-9a51-9a8fbb100005"),
			Name:             "Rising Star",
			Description:      "Reach level 3",
			Icon:             "star",
			RequirementType:  models.RequirementLevelReached,
			RequirementValue: 3,
		},
	}

	for _, a := range defaults {
		a.CreatedAt = time.Now().UTC()
		_, err := db.bunDB.NewInsert().
			Model(a).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.Name, err)
		}
	}

	slog.Info("Achievement definitions seeded", slog.Int("count", len(defaults)))
	return nil
}
