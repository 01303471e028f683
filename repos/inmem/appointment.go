package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
)

// AppointmentRepository is an in-memory appointment.Repository.
type AppointmentRepository struct {
	mu   sync.RWMutex
	byID map[string]appointment.Appointment
}

var _ appointment.Repository = (*AppointmentRepository)(nil)

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{byID: make(map[string]appointment.Appointment)}
}

func (r *AppointmentRepository) Create(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return appointment.Appointment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	end := a.StartAt.Add(a.Duration)
	for _, existing := range r.byID {
		if existing.DoctorID != a.DoctorID || existing.Status != appointment.StatusScheduled {
			continue
		}
		existingEnd := existing.StartAt.Add(existing.Duration)
		if a.StartAt.Before(existingEnd) && existing.StartAt.Before(end) {
			return appointment.Appointment{}, domain.ErrConflict
		}
	}
	r.byID[a.ID] = a
	return a, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (appointment.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return appointment.Appointment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return appointment.Appointment{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return appointment.Appointment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return appointment.Appointment{}, domain.ErrNotFound
	}
	r.byID[a.ID] = a
	return a, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]appointment.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]appointment.Appointment, 0)
	for _, a := range r.byID {
		if a.PatientID != patientID {
			continue
		}
		if !inWindow(a.StartAt, window) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string, window domain.TimeWindow) ([]appointment.Appointment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]appointment.Appointment, 0)
	for _, a := range r.byID {
		if a.DoctorID != doctorID {
			continue
		}
		if !inWindow(a.StartAt, window) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
