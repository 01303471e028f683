package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/staff"
)

// StaffRepository is an in-memory staff.Repository.
type StaffRepository struct {
	mu     sync.RWMutex
	byID   map[string]staff.Staff
	byCode map[string]string
}

var _ staff.Repository = (*StaffRepository)(nil)

func NewStaffRepository() *StaffRepository {
	return &StaffRepository{
		byID:   make(map[string]staff.Staff),
		byCode: make(map[string]string),
	}
}

func (r *StaffRepository) Create(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	if err := ctxErr(ctx); err != nil {
		return staff.Staff{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[s.EmployeeCode]; exists {
		return staff.Staff{}, domain.ErrConflict
	}
	r.byID[s.ID] = s
	r.byCode[s.EmployeeCode] = s.ID
	return s, nil
}

func (r *StaffRepository) Get(ctx context.Context, id string) (staff.Staff, error) {
	if err := ctxErr(ctx); err != nil {
		return staff.Staff{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return staff.Staff{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *StaffRepository) FindByCode(ctx context.Context, employeeCode string) (staff.Staff, error) {
	if err := ctxErr(ctx); err != nil {
		return staff.Staff{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[employeeCode]
	if !ok {
		return staff.Staff{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *StaffRepository) Update(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	if err := ctxErr(ctx); err != nil {
		return staff.Staff{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; !ok {
		return staff.Staff{}, domain.ErrNotFound
	}
	r.byID[s.ID] = s
	return s, nil
}

func (r *StaffRepository) List(ctx context.Context, departmentID string, page domain.Page) ([]staff.Staff, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]staff.Staff, 0, len(r.byID))
	for _, s := range r.byID {
		if departmentID == "" || s.DepartmentID == departmentID {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}
