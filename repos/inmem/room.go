package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/room"
)

// RoomRepository is an in-memory room.Repository.
type RoomRepository struct {
	mu   sync.RWMutex
	byID map[string]room.Room
}

var _ room.Repository = (*RoomRepository)(nil)

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{byID: make(map[string]room.Room)}
}

func (r *RoomRepository) Create(ctx context.Context, rm room.Room) (room.Room, error) {
	if err := ctxErr(ctx); err != nil {
		return room.Room{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rm.ID] = rm
	return rm, nil
}

func (r *RoomRepository) Get(ctx context.Context, id string) (room.Room, error) {
	if err := ctxErr(ctx); err != nil {
		return room.Room{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.byID[id]
	if !ok {
		return room.Room{}, domain.ErrNotFound
	}
	return rm, nil
}

func (r *RoomRepository) ListByDepartment(ctx context.Context, departmentID string) ([]room.Room, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]room.Room, 0)
	for _, rm := range r.byID {
		if rm.DepartmentID == departmentID {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
