// Package document defines the Document entity the document processing
// graph (spec.md §4.4) parses into structured entities, and the
// ExtractedEntity rows that graph persists as stored_refs.
package document

import (
	"context"
	"time"
)

// Document is a single uploaded artifact (referral letter, lab report, ...)
// awaiting or having completed entity extraction.
type Document struct {
	ID         string
	Name       string
	Format     string
	Text       string
	PatientID  string
	UploadedAt time.Time
}

// ExtractedEntity is one structured value the document processing graph
// pulled out of a Document's Text, after validation.
type ExtractedEntity struct {
	ID         string
	DocumentID string
	Kind       string
	Value      string
	Valid      bool
}

// Repository persists Document rows and their ExtractedEntity children.
type Repository interface {
	Create(ctx context.Context, d Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	SaveEntities(ctx context.Context, documentID string, entities []ExtractedEntity) ([]ExtractedEntity, error)
	ListEntities(ctx context.Context, documentID string) ([]ExtractedEntity, error)
}
