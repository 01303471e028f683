package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/inventory"
)

func TestInventoryRepositoryApplyTransactionCommitsStockAndLedger(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "supplies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_code", "category_id", "quantity_on_hand", "reorder_threshold"}).
			AddRow("s1", "GAUZE-4X4", "c1", 10, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "supplies"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "inventory_transactions"`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.ApplyTransaction(context.Background(), "s1", inventory.InventoryTransaction{
		ID: "t1", SupplyID: "s1", Delta: -3, Kind: inventory.TransactionConsume, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.QuantityOnHand)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryApplyTransactionRollsBackOnNegativeStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "supplies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_code", "category_id", "quantity_on_hand", "reorder_threshold"}).
			AddRow("s1", "GAUZE-4X4", "c1", 2, 2))
	mock.ExpectRollback()

	_, err := repo.ApplyTransaction(context.Background(), "s1", inventory.InventoryTransaction{ID: "t1", SupplyID: "s1", Delta: -5})
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
