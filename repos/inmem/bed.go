package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
)

// BedRepository is an in-memory bed.Repository.
type BedRepository struct {
	mu   sync.RWMutex
	byID map[string]bed.Bed
	// byRoomAndNumber enforces bed_number uniqueness within a room.
	byRoomAndNumber map[string]string // roomID+"/"+bedNumber -> id
}

var _ bed.Repository = (*BedRepository)(nil)

func NewBedRepository() *BedRepository {
	return &BedRepository{
		byID:            make(map[string]bed.Bed),
		byRoomAndNumber: make(map[string]string),
	}
}

func roomBedKey(roomID, bedNumber string) string { return roomID + "/" + bedNumber }

func (r *BedRepository) Create(ctx context.Context, b bed.Bed) (bed.Bed, error) {
	if err := ctxErr(ctx); err != nil {
		return bed.Bed{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := roomBedKey(b.RoomID, b.BedNumber)
	if _, exists := r.byRoomAndNumber[key]; exists {
		return bed.Bed{}, domain.ErrConflict
	}
	r.byID[b.ID] = b
	r.byRoomAndNumber[key] = b.ID
	return b, nil
}

func (r *BedRepository) Get(ctx context.Context, id string) (bed.Bed, error) {
	if err := ctxErr(ctx); err != nil {
		return bed.Bed{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return bed.Bed{}, domain.ErrNotFound
	}
	return b, nil
}

func (r *BedRepository) Update(ctx context.Context, b bed.Bed) (bed.Bed, error) {
	if err := ctxErr(ctx); err != nil {
		return bed.Bed{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[b.ID]; !ok {
		return bed.Bed{}, domain.ErrNotFound
	}
	r.byID[b.ID] = b
	return b, nil
}

func (r *BedRepository) List(ctx context.Context, roomID string, page domain.Page) ([]bed.Bed, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]bed.Bed, 0, len(r.byID))
	for _, b := range r.byID {
		if roomID == "" || b.RoomID == roomID {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}

func (r *BedRepository) ListByStatus(ctx context.Context, status bed.Status) ([]bed.Bed, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]bed.Bed, 0)
	for _, b := range r.byID {
		if b.Status == status {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
