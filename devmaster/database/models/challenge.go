package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Challenge holds a coding challenge. TestCode is the hidden correctness
// fragment appended to user submissions by the grader; it must never be
// serialized into an API response.
type Challenge struct {
	bun.BaseModel `bun:"table:challenges,alias:ch"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Title        string    `bun:"title,notnull"`
	Description  string    `bun:"description,notnull"`
	TemplateCode string    `bun:"template_code"`
	TestCode     string    `bun:"test_code,notnull" json:"-"`
	Hints        []string  `bun:"hints,type:jsonb"`
	Difficulty   string    `bun:"difficulty,notnull,default:'beginner'"`
	OrderIndex   int       `bun:"order_index,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// DailyChallenge pins one challenge per calendar day. The unique constraint
// on challenge_date makes the day's pick race-safe: concurrent requests may
// all try to insert, only one wins and everyone reads the same row back.
type DailyChallenge struct {
	bun.BaseModel `bun:"table:daily_challenges,alias:dc"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ChallengeDate time.Time `bun:"challenge_date,notnull,unique,type:date"`
	ChallengeID   uuid.UUID `bun:"challenge_id,notnull,type:uuid"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
