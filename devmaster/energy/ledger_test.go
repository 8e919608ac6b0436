package energy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fakeEnergyRepo struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]*models.UserEnergy
	nextID int64
}

func newFakeEnergyRepo() *fakeEnergyRepo {
	return &fakeEnergyRepo{rows: make(map[uuid.UUID]*models.UserEnergy)}
}

func (f *fakeEnergyRepo) seed(userID uuid.UUID, current, max int, last time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.rows[userID] = &models.UserEnergy{
		ID:                 f.nextID,
		UserID:             userID,
		CurrentEnergy:      current,
		MaxEnergy:          max,
		LastRegenerationAt: last,
	}
}

func (f *fakeEnergyRepo) EnsureProvisioned(_ context.Context, userID uuid.UUID, maxEnergy int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[userID]; ok {
		return nil
	}
	f.nextID++
	f.rows[userID] = &models.UserEnergy{
		ID:                 f.nextID,
		UserID:             userID,
		CurrentEnergy:      maxEnergy,
		MaxEnergy:          maxEnergy,
		LastRegenerationAt: time.Now().UTC(),
	}
	return nil
}

func (f *fakeEnergyRepo) Get(_ context.Context, userID uuid.UUID) (*models.UserEnergy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return nil, repositories.ErrEnergyNotProvisioned
	}
	cp := *row
	return &cp, nil
}

func (f *fakeEnergyRepo) Debit(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return 0, repositories.ErrEnergyNotProvisioned
	}
	if row.CurrentEnergy <= 0 {
		return 0, repositories.ErrInsufficientEnergy
	}
	row.CurrentEnergy--
	return row.CurrentEnergy, nil
}

func (f *fakeEnergyRepo) Credit(_ context.Context, userID uuid.UUID, amount int) (int, error) {
	return f.CreditTx(context.Background(), nil, userID, amount)
}

func (f *fakeEnergyRepo) CreditTx(_ context.Context, _ bun.IDB, userID uuid.UUID, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return 0, repositories.ErrEnergyNotProvisioned
	}
	row.CurrentEnergy += amount
	if row.CurrentEnergy > row.MaxEnergy {
		row.CurrentEnergy = row.MaxEnergy
	}
	return row.CurrentEnergy, nil
}

func (f *fakeEnergyRepo) RestoreFullTx(_ context.Context, _ bun.IDB, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return repositories.ErrEnergyNotProvisioned
	}
	row.CurrentEnergy = row.MaxEnergy
	return nil
}

func (f *fakeEnergyRepo) ListRegenCandidates(_ context.Context, cutoff time.Time) ([]*models.UserEnergy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserEnergy
	for _, row := range f.rows {
		if row.CurrentEnergy < row.MaxEnergy && row.LastRegenerationAt.Before(cutoff) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEnergyRepo) ApplyRegeneration(_ context.Context, id int64, newEnergy int, now, observedLast time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID != id {
			continue
		}
		if !row.LastRegenerationAt.Equal(observedLast) {
			return false, nil
		}
		if newEnergy > row.MaxEnergy {
			newEnergy = row.MaxEnergy
		}
		row.CurrentEnergy = newEnergy
		row.LastRegenerationAt = now
		return true, nil
	}
	return false, nil
}

func TestTicksBetween(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	interval := 10 * time.Minute

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"nothing elapsed", 0, 0},
		{"just under one tick", 9*time.Minute + 59*time.Second, 0},
		{"exactly one tick", 10 * time.Minute, 1},
		{"two and a half ticks", 25 * time.Minute, 2},
		{"clock went backwards", -5 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ticksBetween(base, base.Add(tt.elapsed), interval)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLedgerSpendAndRefund(t *testing.T) {
	repo := newFakeEnergyRepo()
	ledger := NewLedger(repo, 7, 10*time.Minute)
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, ledger.Provision(ctx, userID))

	remaining, err := ledger.Spend(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)

	remaining, err = ledger.Refund(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestLedgerSpendExhausted(t *testing.T) {
	repo := newFakeEnergyRepo()
	ledger := NewLedger(repo, 7, 10*time.Minute)
	userID := uuid.New()
	repo.seed(userID, 0, 7, time.Now().UTC())

	_, err := ledger.Spend(context.Background(), userID)
	assert.ErrorIs(t, err, repositories.ErrInsufficientEnergy)
}

func TestLedgerCreditClamps(t *testing.T) {
	repo := newFakeEnergyRepo()
	ledger := NewLedger(repo, 7, 10*time.Minute)
	userID := uuid.New()
	repo.seed(userID, 6, 7, time.Now().UTC())

	remaining, err := ledger.Credit(context.Background(), userID, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestRegenerateAll(t *testing.T) {
	repo := newFakeEnergyRepo()
	ledger := NewLedger(repo, 7, 10*time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	twoTicks := uuid.New()
	repo.seed(twoTicks, 3, 7, now.Add(-25*time.Minute))

	fresh := uuid.New()
	repo.seed(fresh, 3, 7, now.Add(-9*time.Minute))

	nearFull := uuid.New()
	repo.seed(nearFull, 6, 7, now.Add(-40*time.Minute))

	full := uuid.New()
	repo.seed(full, 7, 7, now.Add(-2*time.Hour))

	regenerated, checked, err := ledger.RegenerateAll(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, regenerated)
	assert.Equal(t, 2, checked)

	row, err := repo.Get(ctx, twoTicks)
	require.NoError(t, err)
	assert.Equal(t, 5, row.CurrentEnergy)
	assert.True(t, row.LastRegenerationAt.Equal(now))

	row, err = repo.Get(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, 3, row.CurrentEnergy)
	assert.True(t, row.LastRegenerationAt.Equal(now.Add(-9*time.Minute)))

	row, err = repo.Get(ctx, nearFull)
	require.NoError(t, err)
	assert.Equal(t, 7, row.CurrentEnergy)
}

func TestRegenerateAllIdempotentWithinInterval(t *testing.T) {
	repo := newFakeEnergyRepo()
	ledger := NewLedger(repo, 7, 10*time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	userID := uuid.New()
	repo.seed(userID, 2, 7, now.Add(-15*time.Minute))

	regenerated, _, err := ledger.RegenerateAll(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, regenerated)

	// A second sweep at the same instant finds no candidates.
	regenerated, checked, err := ledger.RegenerateAll(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, regenerated)
	assert.Equal(t, 0, checked)

	row, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, row.CurrentEnergy)
}
