package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
)

// StaffAssignmentRepository is an in-memory staffassignment.Repository.
type StaffAssignmentRepository struct {
	mu   sync.RWMutex
	byID map[string]staffassignment.StaffAssignment
}

var _ staffassignment.Repository = (*StaffAssignmentRepository)(nil)

func NewStaffAssignmentRepository() *StaffAssignmentRepository {
	return &StaffAssignmentRepository{byID: make(map[string]staffassignment.StaffAssignment)}
}

func (r *StaffAssignmentRepository) Create(ctx context.Context, a staffassignment.StaffAssignment) (staffassignment.StaffAssignment, error) {
	if err := ctxErr(ctx); err != nil {
		return staffassignment.StaffAssignment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
	return a, nil
}

func (r *StaffAssignmentRepository) Close(ctx context.Context, id string, endedAt time.Time) (staffassignment.StaffAssignment, error) {
	if err := ctxErr(ctx); err != nil {
		return staffassignment.StaffAssignment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return staffassignment.StaffAssignment{}, domain.ErrNotFound
	}
	a.EndedAt = &endedAt
	r.byID[id] = a
	return a, nil
}

func (r *StaffAssignmentRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]staffassignment.StaffAssignment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]staffassignment.StaffAssignment, 0)
	for _, a := range r.byID {
		if a.PatientID != patientID {
			continue
		}
		if !window.Start.IsZero() && a.StartedAt.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && !a.StartedAt.Before(window.End) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
