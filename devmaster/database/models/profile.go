package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profile mirrors the identity provider's user id and carries the
// gamification state that is not energy: experience points, level and the
// daily completion streak.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID     uuid.UUID `bun:"id,pk,type:uuid"`
	Name   string    `bun:"name,notnull"`
	Level  int       `bun:"level,notnull,default:1"`
	Points int       `bun:"points,notnull,default:0"`

	// Streaks
	CurrentStreak     int        `bun:"current_streak,notnull,default:0"`
	LongestStreak     int        `bun:"longest_streak,notnull,default:0"`
	LastCompletedDate *time.Time `bun:"last_completed_date,type:date"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
