package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/document"
)

// DocumentRepository is an in-memory document.Repository.
type DocumentRepository struct {
	mu       sync.RWMutex
	byID     map[string]document.Document
	entities map[string][]document.ExtractedEntity
}

var _ document.Repository = (*DocumentRepository)(nil)

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{
		byID:     make(map[string]document.Document),
		entities: make(map[string][]document.ExtractedEntity),
	}
}

func (r *DocumentRepository) Create(ctx context.Context, d document.Document) (document.Document, error) {
	if err := ctxErr(ctx); err != nil {
		return document.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = d
	return d, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (document.Document, error) {
	if err := ctxErr(ctx); err != nil {
		return document.Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return document.Document{}, domain.ErrNotFound
	}
	return d, nil
}

func (r *DocumentRepository) SaveEntities(ctx context.Context, documentID string, entities []document.ExtractedEntity) ([]document.ExtractedEntity, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[documentID]; !ok {
		return nil, domain.ErrNotFound
	}
	r.entities[documentID] = entities
	return entities, nil
}

func (r *DocumentRepository) ListEntities(ctx context.Context, documentID string) ([]document.ExtractedEntity, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entities := append([]document.ExtractedEntity(nil), r.entities[documentID]...)
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	return entities, nil
}
