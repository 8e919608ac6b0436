package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/uptrace/bun"
)

// PurchaseRepository persists purchase intents and guards payment
// fulfillment against webhook replays.
type PurchaseRepository interface {
	RecordIntent(ctx context.Context, intent *models.EnergyPurchase) error
	ProcessOnce(ctx context.Context, payment *models.ProcessedPayment, apply func(ctx context.Context, tx bun.IDB) error) (bool, error)
}

type purchaseRepository struct {
	db *bun.DB
}

func NewPurchaseRepository(db *bun.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) RecordIntent(ctx context.Context, intent *models.EnergyPurchase) error {
	_, err := r.db.NewInsert().Model(intent).Exec(ctx)
	return err
}

// ProcessOnce claims the payment id and, only when this call is the first
// to see it, runs apply inside the same transaction. Returns false without
// running apply when the id was already claimed, so replayed webhooks can
// never credit twice: the dedup insert and the credit commit or roll back
// together.
func (r *purchaseRepository) ProcessOnce(ctx context.Context, payment *models.ProcessedPayment, apply func(ctx context.Context, tx bun.IDB) error) (bool, error) {
	var applied bool
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(payment).
			On("CONFLICT (payment_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to claim payment id: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		applied = true
		return apply(ctx, tx)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
