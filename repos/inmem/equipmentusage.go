package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
)

// EquipmentUsageRepository is an in-memory equipmentusage.Repository.
type EquipmentUsageRepository struct {
	mu   sync.RWMutex
	byID map[string]equipmentusage.EquipmentUsage
}

var _ equipmentusage.Repository = (*EquipmentUsageRepository)(nil)

func NewEquipmentUsageRepository() *EquipmentUsageRepository {
	return &EquipmentUsageRepository{byID: make(map[string]equipmentusage.EquipmentUsage)}
}

func (r *EquipmentUsageRepository) Create(ctx context.Context, u equipmentusage.EquipmentUsage) (equipmentusage.EquipmentUsage, error) {
	if err := ctxErr(ctx); err != nil {
		return equipmentusage.EquipmentUsage{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	return u, nil
}

func (r *EquipmentUsageRepository) Close(ctx context.Context, id string, endedAt time.Time) (equipmentusage.EquipmentUsage, error) {
	if err := ctxErr(ctx); err != nil {
		return equipmentusage.EquipmentUsage{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return equipmentusage.EquipmentUsage{}, domain.ErrNotFound
	}
	u.EndedAt = &endedAt
	r.byID[id] = u
	return u, nil
}

func (r *EquipmentUsageRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]equipmentusage.EquipmentUsage, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]equipmentusage.EquipmentUsage, 0)
	for _, u := range r.byID {
		if u.PatientID != patientID {
			continue
		}
		if !window.Start.IsZero() && u.StartedAt.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && !u.StartedAt.Before(window.End) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
