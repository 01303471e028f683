package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/department"
)

// DepartmentRepository is an in-memory department.Repository.
type DepartmentRepository struct {
	mu   sync.RWMutex
	byID map[string]department.Department
}

var _ department.Repository = (*DepartmentRepository)(nil)

func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{byID: make(map[string]department.Department)}
}

func (r *DepartmentRepository) Create(ctx context.Context, d department.Department) (department.Department, error) {
	if err := ctxErr(ctx); err != nil {
		return department.Department{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = d
	return d, nil
}

func (r *DepartmentRepository) Get(ctx context.Context, id string) (department.Department, error) {
	if err := ctxErr(ctx); err != nil {
		return department.Department{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return department.Department{}, domain.ErrNotFound
	}
	return d, nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]department.Department, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]department.Department, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
