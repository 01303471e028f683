package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/user"
)

// UserRepository is an in-memory user.Repository.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]user.User
	byUsername map[string]string
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]user.User),
		byUsername: make(map[string]string),
	}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	if err := ctxErr(ctx); err != nil {
		return user.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[u.Username]; exists {
		return user.User{}, domain.ErrConflict
	}
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u.ID
	return u, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (user.User, error) {
	if err := ctxErr(ctx); err != nil {
		return user.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return user.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (user.User, error) {
	if err := ctxErr(ctx); err != nil {
		return user.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return user.User{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepository) Update(ctx context.Context, u user.User) (user.User, error) {
	if err := ctxErr(ctx); err != nil {
		return user.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return user.User{}, domain.ErrNotFound
	}
	r.byID[u.ID] = u
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, page domain.Page) ([]user.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]user.User, 0, len(r.byID))
	for _, u := range r.byID {
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}
