// Package inmem provides map+mutex implementations of every domain
// repository interface, grounded on the teacher's
// registry/store/memory.Store (ctx.Done()-checked mutex-guarded map). It
// backs tests and the default cmd/hospitalcored configuration when no
// DATABASE_URL is set (SPEC_FULL.md §3.1).
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/patient"
)

// PatientRepository is an in-memory patient.Repository.
type PatientRepository struct {
	mu     sync.RWMutex
	byID   map[string]patient.Patient
	byCode map[string]string // patient_code -> id
}

var _ patient.Repository = (*PatientRepository)(nil)

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{
		byID:   make(map[string]patient.Patient),
		byCode: make(map[string]string),
	}
}

func (r *PatientRepository) Create(ctx context.Context, p patient.Patient) (patient.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return patient.Patient{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[p.PatientCode]; exists {
		return patient.Patient{}, domain.ErrConflict
	}
	r.byID[p.ID] = p
	r.byCode[p.PatientCode] = p.ID
	return p, nil
}

func (r *PatientRepository) Get(ctx context.Context, id string) (patient.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return patient.Patient{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return patient.Patient{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *PatientRepository) FindByCode(ctx context.Context, patientCode string) (patient.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return patient.Patient{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[patientCode]
	if !ok {
		return patient.Patient{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *PatientRepository) Update(ctx context.Context, p patient.Patient) (patient.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return patient.Patient{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return patient.Patient{}, domain.ErrNotFound
	}
	r.byID[p.ID] = p
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context, status patient.Status, page domain.Page) ([]patient.Patient, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]patient.Patient, 0, len(r.byID))
	for _, p := range r.byID {
		if status == "" || p.Status == status {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}
