package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RequirementType string

const (
	RequirementChallengesCompleted RequirementType = "challenges_completed"
	RequirementTotalAttempts       RequirementType = "total_attempts"
	RequirementLevelReached        RequirementType = "level_reached"
)

type Achievement struct {
	bun.BaseModel `bun:"table:achievements,alias:a"`

	ID               uuid.UUID       `bun:"id,pk,type:uuid"`
	Name             string          `bun:"name,notnull"`
	Description      string          `bun:"description,notnull"`
	Icon             string          `bun:"icon,notnull"`
	RequirementType  RequirementType `bun:"requirement_type,notnull"`
	RequirementValue int             `bun:"requirement_value,notnull"`
	CreatedAt        time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

// UserAchievement existence means unlocked. Rows are insert-only and the
// (user_id, achievement_id) pair is unique, which is what makes evaluation
// safe to re-run.
type UserAchievement struct {
	bun.BaseModel `bun:"table:user_achievements,alias:ua"`

	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid"`
	AchievementID uuid.UUID `bun:"achievement_id,notnull,type:uuid"`
	UnlockedAt    time.Time `bun:"unlocked_at,notnull"`
}

// AchievementWithStatus is the read model for the achievements listing.
type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
