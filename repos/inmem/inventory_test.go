package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/inventory"
)

func TestInventoryRepositoryApplyTransactionAdjustsStockAndLedger(t *testing.T) {
	repo := NewInventoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, inventory.Supply{ID: "s1", ItemCode: "GAUZE-4X4", QuantityOnHand: 10})
	require.NoError(t, err)

	updated, err := repo.ApplyTransaction(ctx, "s1", inventory.InventoryTransaction{
		ID: "t1", SupplyID: "s1", Delta: -3, Kind: inventory.TransactionConsume, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.QuantityOnHand)

	txns, err := repo.ListBySupply(ctx, "s1", domain.Page{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, -3, txns[0].Delta)
}

func TestInventoryRepositoryApplyTransactionRejectsNegativeStock(t *testing.T) {
	repo := NewInventoryRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, inventory.Supply{ID: "s1", ItemCode: "GAUZE-4X4", QuantityOnHand: 2})
	require.NoError(t, err)

	_, err = repo.ApplyTransaction(ctx, "s1", inventory.InventoryTransaction{ID: "t1", SupplyID: "s1", Delta: -5})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestInventoryRepositoryCreateRejectsDuplicateItemCode(t *testing.T) {
	repo := NewInventoryRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, inventory.Supply{ID: "s1", ItemCode: "GAUZE-4X4"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, inventory.Supply{ID: "s2", ItemCode: "GAUZE-4X4"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUsageRepositoryListByPatientFiltersByWindow(t *testing.T) {
	repo := NewUsageRepository()
	ctx := context.Background()
	now := time.Now()

	_, err := repo.Create(ctx, inventory.PatientSupplyUsage{ID: "u1", PatientID: "p1", SupplyID: "s1", AdministeredAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, inventory.PatientSupplyUsage{ID: "u2", PatientID: "p1", SupplyID: "s1", AdministeredAt: now})
	require.NoError(t, err)

	usages, err := repo.ListByPatient(ctx, "p1", domain.TimeWindow{Start: now.Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "u2", usages[0].ID)
}
