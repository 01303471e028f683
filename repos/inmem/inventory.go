package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/inventory"
)

// InventoryRepository backs both inventory.SupplyRepository and
// inventory.TransactionRepository from one locked store, since
// ApplyTransaction must adjust stock and append the ledger row atomically.
type InventoryRepository struct {
	mu           sync.RWMutex
	byID         map[string]inventory.Supply
	byCode       map[string]string
	transactions map[string][]inventory.InventoryTransaction // supplyID -> ledger
}

var _ inventory.SupplyRepository = (*InventoryRepository)(nil)
var _ inventory.TransactionRepository = (*InventoryRepository)(nil)

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		byID:         make(map[string]inventory.Supply),
		byCode:       make(map[string]string),
		transactions: make(map[string][]inventory.InventoryTransaction),
	}
}

func (r *InventoryRepository) Create(ctx context.Context, s inventory.Supply) (inventory.Supply, error) {
	if err := ctxErr(ctx); err != nil {
		return inventory.Supply{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[s.ItemCode]; exists {
		return inventory.Supply{}, domain.ErrConflict
	}
	r.byID[s.ID] = s
	r.byCode[s.ItemCode] = s.ID
	return s, nil
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (inventory.Supply, error) {
	if err := ctxErr(ctx); err != nil {
		return inventory.Supply{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return inventory.Supply{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *InventoryRepository) FindByCode(ctx context.Context, itemCode string) (inventory.Supply, error) {
	if err := ctxErr(ctx); err != nil {
		return inventory.Supply{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[itemCode]
	if !ok {
		return inventory.Supply{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *InventoryRepository) ApplyTransaction(ctx context.Context, supplyID string, txn inventory.InventoryTransaction) (inventory.Supply, error) {
	if err := ctxErr(ctx); err != nil {
		return inventory.Supply{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[supplyID]
	if !ok {
		return inventory.Supply{}, domain.ErrNotFound
	}
	if s.QuantityOnHand+txn.Delta < 0 {
		return inventory.Supply{}, domain.ErrConflict
	}
	s.QuantityOnHand += txn.Delta
	r.byID[supplyID] = s
	r.transactions[supplyID] = append(r.transactions[supplyID], txn)
	return s, nil
}

func (r *InventoryRepository) List(ctx context.Context, categoryID string, page domain.Page) ([]inventory.Supply, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]inventory.Supply, 0, len(r.byID))
	for _, s := range r.byID {
		if categoryID == "" || s.CategoryID == categoryID {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}

func (r *InventoryRepository) ListBySupply(ctx context.Context, supplyID string, page domain.Page) ([]inventory.InventoryTransaction, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	txns := r.transactions[supplyID]
	out := make([]inventory.InventoryTransaction, len(txns))
	copy(out, txns)
	return paginate(out, page), nil
}

// UsageRepository is an in-memory inventory.UsageRepository.
type UsageRepository struct {
	mu   sync.RWMutex
	byID map[string]inventory.PatientSupplyUsage
}

var _ inventory.UsageRepository = (*UsageRepository)(nil)

func NewUsageRepository() *UsageRepository {
	return &UsageRepository{byID: make(map[string]inventory.PatientSupplyUsage)}
}

func (r *UsageRepository) Create(ctx context.Context, u inventory.PatientSupplyUsage) (inventory.PatientSupplyUsage, error) {
	if err := ctxErr(ctx); err != nil {
		return inventory.PatientSupplyUsage{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	return u, nil
}

func (r *UsageRepository) ListByPatient(ctx context.Context, patientID string, window domain.TimeWindow) ([]inventory.PatientSupplyUsage, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]inventory.PatientSupplyUsage, 0)
	for _, u := range r.byID {
		if u.PatientID != patientID {
			continue
		}
		if !window.Start.IsZero() && u.AdministeredAt.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && !u.AdministeredAt.Before(window.End) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
