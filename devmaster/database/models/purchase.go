package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ItemType string

const (
	ItemTypeEnergy       ItemType = "energy"
	ItemTypeEnergyFull   ItemType = "energy_full"
	ItemTypeBuff         ItemType = "buff"
	ItemTypeSubscription ItemType = "subscription"
)

// EnergyPurchase records purchase *intent* at preference-creation time.
// Fulfillment happens later, through the webhook, and is tracked separately
// by ProcessedPayment.
type EnergyPurchase struct {
	bun.BaseModel `bun:"table:energy_purchases,alias:ep"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       uuid.UUID `bun:"user_id,notnull,type:uuid"`
	ItemType     ItemType  `bun:"item_type,notnull"`
	ItemValue    int       `bun:"item_value,notnull"`
	PreferenceID string    `bun:"preference_id,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ProcessedPayment is the webhook replay guard. The unique payment_id means
// a given approved payment can be applied at most once no matter how many
// times the processor re-delivers the notification.
type ProcessedPayment struct {
	bun.BaseModel `bun:"table:processed_payments,alias:pp"`

	ID          int64     `bun:"id,pk,autoincrement"`
	PaymentID   string    `bun:"payment_id,notnull,unique"`
	UserID      uuid.UUID `bun:"user_id,notnull,type:uuid"`
	ItemType    ItemType  `bun:"item_type,notnull"`
	ItemValue   int       `bun:"item_value,notnull"`
	ProcessedAt time.Time `bun:"processed_at,notnull"`
}
