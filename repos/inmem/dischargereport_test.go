package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
)

func TestDischargeReportRepositoryGetLatestForPatient(t *testing.T) {
	repo := NewDischargeReportRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, dischargereport.DischargeReport{ID: "r1", PatientID: "p1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, dischargereport.DischargeReport{ID: "r2", PatientID: "p1"})
	require.NoError(t, err)

	latest, err := repo.GetLatestForPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
}

func TestDischargeReportRepositoryDeleteSupportsRollback(t *testing.T) {
	repo := NewDischargeReportRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, dischargereport.DischargeReport{ID: "r1", PatientID: "p1"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "r1"))

	_, err = repo.Get(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetLatestForPatient(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
