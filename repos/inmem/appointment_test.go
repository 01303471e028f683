package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
)

func TestAppointmentRepositoryCreateRejectsDoctorOverlap(t *testing.T) {
	repo := NewAppointmentRepository()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, appointment.Appointment{
		ID: "a1", DoctorID: "d1", StartAt: start, Duration: time.Hour, Status: appointment.StatusScheduled,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, appointment.Appointment{
		ID: "a2", DoctorID: "d1", StartAt: start.Add(30 * time.Minute), Duration: time.Hour, Status: appointment.StatusScheduled,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.Create(ctx, appointment.Appointment{
		ID: "a3", DoctorID: "d1", StartAt: start.Add(2 * time.Hour), Duration: time.Hour, Status: appointment.StatusScheduled,
	})
	assert.NoError(t, err)
}

func TestAppointmentRepositoryCreateIgnoresCancelledOverlap(t *testing.T) {
	repo := NewAppointmentRepository()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, appointment.Appointment{
		ID: "a1", DoctorID: "d1", StartAt: start, Duration: time.Hour, Status: appointment.StatusCancelled,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, appointment.Appointment{
		ID: "a2", DoctorID: "d1", StartAt: start, Duration: time.Hour, Status: appointment.StatusScheduled,
	})
	assert.NoError(t, err)
}

func TestAppointmentRepositoryListByPatientWithinWindow(t *testing.T) {
	repo := NewAppointmentRepository()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	_, err := repo.Create(ctx, appointment.Appointment{ID: "a1", PatientID: "p1", DoctorID: "d1", StartAt: start, Duration: time.Hour})
	require.NoError(t, err)

	results, err := repo.ListByPatient(ctx, "p1", domain.TimeWindow{Start: start.Add(-time.Hour), End: start.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].ID)
}
