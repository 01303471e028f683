package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/equipment"
)

// EquipmentRepository is an in-memory equipment.Repository.
type EquipmentRepository struct {
	mu     sync.RWMutex
	byID   map[string]equipment.Equipment
	byCode map[string]string
}

var _ equipment.Repository = (*EquipmentRepository)(nil)

func NewEquipmentRepository() *EquipmentRepository {
	return &EquipmentRepository{
		byID:   make(map[string]equipment.Equipment),
		byCode: make(map[string]string),
	}
}

func (r *EquipmentRepository) Create(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error) {
	if err := ctxErr(ctx); err != nil {
		return equipment.Equipment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[e.EquipmentCode]; exists {
		return equipment.Equipment{}, domain.ErrConflict
	}
	r.byID[e.ID] = e
	r.byCode[e.EquipmentCode] = e.ID
	return e, nil
}

func (r *EquipmentRepository) Get(ctx context.Context, id string) (equipment.Equipment, error) {
	if err := ctxErr(ctx); err != nil {
		return equipment.Equipment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return equipment.Equipment{}, domain.ErrNotFound
	}
	return e, nil
}

func (r *EquipmentRepository) FindByCode(ctx context.Context, equipmentCode string) (equipment.Equipment, error) {
	if err := ctxErr(ctx); err != nil {
		return equipment.Equipment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[equipmentCode]
	if !ok {
		return equipment.Equipment{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *EquipmentRepository) Update(ctx context.Context, e equipment.Equipment) (equipment.Equipment, error) {
	if err := ctxErr(ctx); err != nil {
		return equipment.Equipment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; !ok {
		return equipment.Equipment{}, domain.ErrNotFound
	}
	r.byID[e.ID] = e
	return e, nil
}

func (r *EquipmentRepository) List(ctx context.Context, status equipment.Status, page domain.Page) ([]equipment.Equipment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]equipment.Equipment, 0, len(r.byID))
	for _, e := range r.byID {
		if status == "" || e.Status == status {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}
