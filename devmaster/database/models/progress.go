package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserProgress tracks attempts and completion per (user, challenge).
// Attempts only grow and completed only flips false -> true; both rules are
// enforced by the repository's guarded statements, the unique constraint is
// the safety net against concurrent first attempts creating two rows.
type UserProgress struct {
	bun.BaseModel `bun:"table:user_progress,alias:up"`

	ID          int64      `bun:"id,pk,autoincrement"`
	UserID      uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	ChallengeID uuid.UUID  `bun:"challenge_id,notnull,type:uuid"`
	Completed   bool       `bun:"completed,notnull,default:false"`
	CompletedAt *time.Time `bun:"completed_at"`
	Attempts    int        `bun:"attempts,notnull,default:0"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

// UserDailyProgress gates the once-per-day daily challenge bonus. One row
// per (user, calendar day); inserting it is the idempotency token for the
// +1 energy reward.
type UserDailyProgress struct {
	bun.BaseModel `bun:"table:user_daily_progress,alias:udp"`

	ID            int64      `bun:"id,pk,autoincrement"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	ChallengeDate time.Time  `bun:"challenge_date,notnull,type:date"`
	Completed     bool       `bun:"completed,notnull,default:false"`
	CompletedAt   *time.Time `bun:"completed_at"`
}
