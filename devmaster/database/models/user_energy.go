package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserEnergy is the per-user energy row. It is only ever mutated through
// EnergyRepository so that 0 <= current_energy <= max_energy always holds.
type UserEnergy struct {
	bun.BaseModel `bun:"table:user_energy,alias:ue"`

	ID                 int64     `bun:"id,pk,autoincrement"`
	UserID             uuid.UUID `bun:"user_id,notnull,unique,type:uuid"`
	CurrentEnergy      int       `bun:"current_energy,notnull,default:7"`
	MaxEnergy          int       `bun:"max_energy,notnull,default:7"`
	LastRegenerationAt time.Time `bun:"last_regeneration_at,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}
