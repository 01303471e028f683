package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
)

func TestBedRepositoryCreateRejectsDuplicateNumberWithinRoom(t *testing.T) {
	repo := NewBedRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, bed.Bed{ID: "b1", RoomID: "r1", BedNumber: "A", Status: bed.StatusAvailable})
	require.NoError(t, err)

	_, err = repo.Create(ctx, bed.Bed{ID: "b2", RoomID: "r1", BedNumber: "A", Status: bed.StatusAvailable})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.Create(ctx, bed.Bed{ID: "b3", RoomID: "r2", BedNumber: "A", Status: bed.StatusAvailable})
	assert.NoError(t, err)
}

func TestBedRepositoryListByStatus(t *testing.T) {
	repo := NewBedRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, bed.Bed{ID: "b1", RoomID: "r1", BedNumber: "A", Status: bed.StatusAvailable})
	require.NoError(t, err)
	_, err = repo.Create(ctx, bed.Bed{ID: "b2", RoomID: "r1", BedNumber: "B", Status: bed.StatusOccupied})
	require.NoError(t, err)

	available, err := repo.ListByStatus(ctx, bed.StatusAvailable)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "b1", available[0].ID)
}

func TestBedRepositoryUpdateTransitionsStatus(t *testing.T) {
	repo := NewBedRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, bed.Bed{ID: "b1", RoomID: "r1", BedNumber: "A", Status: bed.StatusAvailable})
	require.NoError(t, err)

	patientID := "p1"
	updated, err := repo.Update(ctx, bed.Bed{ID: "b1", RoomID: "r1", BedNumber: "A", Status: bed.StatusOccupied, CurrentPatientID: &patientID})
	require.NoError(t, err)
	assert.Equal(t, bed.StatusOccupied, updated.Status)
	require.NotNil(t, updated.CurrentPatientID)
	assert.Equal(t, "p1", *updated.CurrentPatientID)
}

func TestBedRepositoryListFiltersByRoom(t *testing.T) {
	repo := NewBedRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, bed.Bed{ID: "b1", RoomID: "r1", BedNumber: "A"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, bed.Bed{ID: "b2", RoomID: "r2", BedNumber: "A"})
	require.NoError(t, err)

	inRoom, err := repo.List(ctx, "r1", domain.Page{})
	require.NoError(t, err)
	require.Len(t, inRoom, 1)
	assert.Equal(t, "b1", inRoom[0].ID)
}
