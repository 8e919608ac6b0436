package energy

import (
	"context"
	"log/slog"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

const regenWorkers = 8

// Ledger applies the energy economy rules on top of the energy repository.
// One unit buys one graded submission; a passing submission is refunded.
type Ledger struct {
	energy        repositories.EnergyRepository
	maxEnergy     int
	regenInterval time.Duration
}

func NewLedger(energy repositories.EnergyRepository, maxEnergy int, regenInterval time.Duration) *Ledger {
	return &Ledger{
		energy:        energy,
		maxEnergy:     maxEnergy,
		regenInterval: regenInterval,
	}
}

// Provision makes sure the user has an energy row, starting at full.
func (l *Ledger) Provision(ctx context.Context, userID uuid.UUID) error {
	return l.energy.EnsureProvisioned(ctx, userID, l.maxEnergy)
}

// Balance returns the user's current energy row.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (*models.UserEnergy, error) {
	return l.energy.Get(ctx, userID)
}

// Spend takes one unit up front. Returns the remaining balance, or
// repositories.ErrInsufficientEnergy when the balance is already zero.
func (l *Ledger) Spend(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.energy.Debit(ctx, userID)
}

// Refund returns the unit spent on a successful submission.
func (l *Ledger) Refund(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.energy.Credit(ctx, userID, 1)
}

// Credit adds amount, clamped to the user's maximum.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	return l.energy.Credit(ctx, userID, amount)
}

// CreditTx credits inside a caller-owned transaction.
func (l *Ledger) CreditTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, amount int) (int, error) {
	return l.energy.CreditTx(ctx, tx, userID, amount)
}

// RestoreFullTx sets the balance to the user's own maximum inside a
// caller-owned transaction.
func (l *Ledger) RestoreFullTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	return l.energy.RestoreFullTx(ctx, tx, userID)
}

// ticksBetween reports how many whole regeneration intervals fit between
// last and now.
func ticksBetween(last, now time.Time, interval time.Duration) int {
	if !now.After(last) {
		return 0
	}
	return int(now.Sub(last) / interval)
}

// RegenerateAll sweeps every user below their maximum whose last
// regeneration is at least one interval old, and credits one unit per
// elapsed interval. The regeneration timestamp only advances when at
// least one unit is granted, so partial intervals are never lost.
// Returns how many users were credited and how many were examined.
func (l *Ledger) RegenerateAll(ctx context.Context, now time.Time) (int, int, error) {
	cutoff := now.Add(-l.regenInterval)
	candidates, err := l.energy.ListRegenCandidates(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}

	var regenerated int
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(regenWorkers)
	results := make([]bool, len(candidates))

	for i, row := range candidates {
		i, row := i, row
		g.Go(func() error {
			ticks := ticksBetween(row.LastRegenerationAt, now, l.regenInterval)
			if ticks == 0 {
				return nil
			}
			newEnergy := row.CurrentEnergy + ticks
			if newEnergy > row.MaxEnergy {
				newEnergy = row.MaxEnergy
			}
			applied, err := l.energy.ApplyRegeneration(gctx, row.ID, newEnergy, now, row.LastRegenerationAt)
			if err != nil {
				return err
			}
			// A lost race means another sweep already handled this row.
			results[i] = applied
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	for _, applied := range results {
		if applied {
			regenerated++
		}
	}
	slog.Info("Energy regeneration sweep finished",
		slog.String("type", "SYS"),
		slog.Int("checked", len(candidates)),
		slog.Int("regenerated", regenerated))
	return regenerated, len(candidates), nil
}
