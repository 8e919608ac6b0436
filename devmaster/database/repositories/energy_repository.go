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

var (
	ErrInsufficientEnergy   = errors.New("insufficient energy")
	ErrEnergyNotProvisioned = errors.New("energy row not provisioned")
)

// EnergyRepository owns every write to user_energy. Debit and Credit are
// single guarded UPDATE statements so two concurrent requests can never
// observe the same balance and both win.
type EnergyRepository interface {
	EnsureProvisioned(ctx context.Context, userID uuid.UUID, maxEnergy int) error
	Get(ctx context.Context, userID uuid.UUID) (*models.UserEnergy, error)
	Debit(ctx context.Context, userID uuid.UUID) (int, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int) (int, error)
	CreditTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, amount int) (int, error)
	RestoreFullTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	ListRegenCandidates(ctx context.Context, cutoff time.Time) ([]*models.UserEnergy, error)
	ApplyRegeneration(ctx context.Context, id int64, newEnergy int, now, observedLast time.Time) (bool, error)
}

type energyRepository struct {
	db *bun.DB
}

func NewEnergyRepository(db *bun.DB) EnergyRepository {
	return &energyRepository{db: db}
}

func (r *energyRepository) EnsureProvisioned(ctx context.Context, userID uuid.UUID, maxEnergy int) error {
	row := &models.UserEnergy{
		UserID:             userID,
		CurrentEnergy:      maxEnergy,
		MaxEnergy:          maxEnergy,
		LastRegenerationAt: time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *energyRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserEnergy, error) {
	energy := new(models.UserEnergy)
	err := r.db.NewSelect().
		Model(energy).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEnergyNotProvisioned
	}
	return energy, err
}

// Debit takes exactly one energy and returns the remaining balance. The
// current_energy > 0 guard in the WHERE clause is what keeps the balance
// from going negative under concurrent debits.
func (r *energyRepository) Debit(ctx context.Context, userID uuid.UUID) (int, error) {
	var remaining int
	_, err := r.db.NewUpdate().
		Model((*models.UserEnergy)(nil)).
		Set("current_energy = current_energy - 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ? AND current_energy > 0", userID).
		Returning("current_energy").
		Exec(ctx, &remaining)
	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := r.db.NewSelect().
			Model((*models.UserEnergy)(nil)).
			Where("user_id = ?", userID).
			Exists(ctx)
		if existsErr != nil {
			return 0, existsErr
		}
		if !exists {
			return 0, ErrEnergyNotProvisioned
		}
		return 0, ErrInsufficientEnergy
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit energy: %w", err)
	}
	return remaining, nil
}

func (r *energyRepository) Credit(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	return r.CreditTx(ctx, r.db, userID, amount)
}

// CreditTx adds amount clamped to max_energy. Exposed with an IDB receiver
// so the payment reconciler can run it inside its dedup transaction and
// have both commit or roll back together.
func (r *energyRepository) CreditTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, amount int) (int, error) {
	var remaining int
	_, err := tx.NewUpdate().
		Model((*models.UserEnergy)(nil)).
		Set("current_energy = LEAST(current_energy + ?, max_energy)", amount).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Returning("current_energy").
		Exec(ctx, &remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEnergyNotProvisioned
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit energy: %w", err)
	}
	return remaining, nil
}

// RestoreFullTx sets the balance to the row's own max_energy, so users
// with a raised cap get their full cap back, not the global default.
func (r *energyRepository) RestoreFullTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*models.UserEnergy)(nil)).
		Set("current_energy = max_energy").
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore energy: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrEnergyNotProvisioned
	}
	return nil
}

func (r *energyRepository) ListRegenCandidates(ctx context.Context, cutoff time.Time) ([]*models.UserEnergy, error) {
	var rows []*models.UserEnergy
	err := r.db.NewSelect().
		Model(&rows).
		Where("current_energy < max_energy").
		Where("last_regeneration_at < ?", cutoff).
		Scan(ctx)
	return rows, err
}

// ApplyRegeneration writes the result of one regeneration tick computation.
// The last_regeneration_at guard makes it a compare-and-set: if a debit,
// credit or a competing batch touched the row since it was read, nothing is
// written and the caller skips the row until the next run.
func (r *energyRepository) ApplyRegeneration(ctx context.Context, id int64, newEnergy int, now, observedLast time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.UserEnergy)(nil)).
		Set("current_energy = LEAST(?, max_energy)", newEnergy).
		Set("last_regeneration_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ? AND last_regeneration_at = ?", id, observedLast).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to apply regeneration: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
