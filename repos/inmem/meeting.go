package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/meeting"
)

// MeetingRepository is an in-memory meeting.Repository.
type MeetingRepository struct {
	mu   sync.RWMutex
	byID map[string]meeting.Meeting
}

var _ meeting.Repository = (*MeetingRepository)(nil)

func NewMeetingRepository() *MeetingRepository {
	return &MeetingRepository{byID: make(map[string]meeting.Meeting)}
}

func (r *MeetingRepository) Create(ctx context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	if err := ctxErr(ctx); err != nil {
		return meeting.Meeting{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	return m, nil
}

func (r *MeetingRepository) Get(ctx context.Context, id string) (meeting.Meeting, error) {
	if err := ctxErr(ctx); err != nil {
		return meeting.Meeting{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return meeting.Meeting{}, domain.ErrNotFound
	}
	return m, nil
}

func (r *MeetingRepository) ListByStaff(ctx context.Context, staffID string) ([]meeting.Meeting, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]meeting.Meeting, 0)
	for _, m := range r.byID {
		for _, id := range m.StaffIDs {
			if id == staffID {
				out = append(out, m)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
