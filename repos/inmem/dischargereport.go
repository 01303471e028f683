package inmem

import (
	"context"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
)

// DischargeReportRepository is an in-memory dischargereport.Repository.
type DischargeReportRepository struct {
	mu          sync.RWMutex
	byID        map[string]dischargereport.DischargeReport
	byPatientID map[string][]string // patientID -> ids in creation order
}

var _ dischargereport.Repository = (*DischargeReportRepository)(nil)

func NewDischargeReportRepository() *DischargeReportRepository {
	return &DischargeReportRepository{
		byID:        make(map[string]dischargereport.DischargeReport),
		byPatientID: make(map[string][]string),
	}
}

func (r *DischargeReportRepository) Create(ctx context.Context, rep dischargereport.DischargeReport) (dischargereport.DischargeReport, error) {
	if err := ctxErr(ctx); err != nil {
		return dischargereport.DischargeReport{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rep.ID] = rep
	r.byPatientID[rep.PatientID] = append(r.byPatientID[rep.PatientID], rep.ID)
	return rep, nil
}

func (r *DischargeReportRepository) Get(ctx context.Context, id string) (dischargereport.DischargeReport, error) {
	if err := ctxErr(ctx); err != nil {
		return dischargereport.DischargeReport{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.byID[id]
	if !ok {
		return dischargereport.DischargeReport{}, domain.ErrNotFound
	}
	return rep, nil
}

func (r *DischargeReportRepository) GetLatestForPatient(ctx context.Context, patientID string) (dischargereport.DischargeReport, error) {
	if err := ctxErr(ctx); err != nil {
		return dischargereport.DischargeReport{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byPatientID[patientID]
	if len(ids) == 0 {
		return dischargereport.DischargeReport{}, domain.ErrNotFound
	}
	return r.byID[ids[len(ids)-1]], nil
}

func (r *DischargeReportRepository) Delete(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	ids := r.byPatientID[rep.PatientID]
	for i, existing := range ids {
		if existing == id {
			r.byPatientID[rep.PatientID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
