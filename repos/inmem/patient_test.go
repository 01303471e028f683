package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/patient"
)

func TestPatientRepositoryCreateAndGet(t *testing.T) {
	repo := NewPatientRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, patient.Patient{ID: "p1", PatientCode: "MRN-001", Status: patient.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.ID)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "MRN-001", got.PatientCode)
}

func TestPatientRepositoryCreateRejectsDuplicateCode(t *testing.T) {
	repo := NewPatientRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, patient.Patient{ID: "p1", PatientCode: "MRN-001"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, patient.Patient{ID: "p2", PatientCode: "MRN-001"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPatientRepositoryGetUnknownReturnsNotFound(t *testing.T) {
	repo := NewPatientRepository()
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatientRepositoryFindByCode(t *testing.T) {
	repo := NewPatientRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, patient.Patient{ID: "p1", PatientCode: "MRN-001"})
	require.NoError(t, err)

	got, err := repo.FindByCode(ctx, "MRN-001")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	_, err = repo.FindByCode(ctx, "MRN-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatientRepositoryUpdateRequiresExisting(t *testing.T) {
	repo := NewPatientRepository()
	ctx := context.Background()
	_, err := repo.Update(ctx, patient.Patient{ID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Create(ctx, patient.Patient{ID: "p1", PatientCode: "MRN-001", Status: patient.StatusActive})
	require.NoError(t, err)
	updated, err := repo.Update(ctx, patient.Patient{ID: "p1", PatientCode: "MRN-001", Status: patient.StatusDischarged})
	require.NoError(t, err)
	assert.Equal(t, patient.StatusDischarged, updated.Status)
}

func TestPatientRepositoryListFiltersByStatusAndPaginates(t *testing.T) {
	repo := NewPatientRepository()
	ctx := context.Background()
	for i, id := range []string{"p1", "p2", "p3"} {
		status := patient.StatusActive
		if i == 1 {
			status = patient.StatusDischarged
		}
		_, err := repo.Create(ctx, patient.Patient{ID: id, PatientCode: id + "-code", Status: status})
		require.NoError(t, err)
	}

	active, err := repo.List(ctx, patient.StatusActive, domain.Page{})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	paged, err := repo.List(ctx, "", domain.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "p2", paged[0].ID)
}
