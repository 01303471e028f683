package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain/document"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// DocumentAgent owns the Document bounded context (spec.md §4.5). It stores
// the raw documents and the entities the document processing graph (spec.md
// §4.4) extracts and validates from them; it performs no extraction itself.
type DocumentAgent struct {
	documents document.Repository
}

// NewDocumentAgent constructs a DocumentAgent.
func NewDocumentAgent(documents document.Repository) *DocumentAgent {
	return &DocumentAgent{documents: documents}
}

// Register adds every Document agent tool to reg.
func (a *DocumentAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "document.create_document",
			OwningAgent: "document",
			Description: "Register a new document for later processing.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"format": {"type": "string"},
					"text": {"type": "string"},
					"patient_id": {"type": "string"}
				},
				"required": ["name", "format", "text"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createDocument,
		},
		{
			Name:        "document.get_document",
			OwningAgent: "document",
			Description: "Fetch a document by id.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"id": {"type": "string"}},
				"required": ["id"]
			}`),
			Handler: a.getDocument,
		},
		{
			Name:        "document.save_extracted_entities",
			OwningAgent: "document",
			Description: "Persist the entities extracted and validated from a document.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"document_id": {"type": "string"},
					"entities": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"kind": {"type": "string"},
								"value": {"type": "string"},
								"valid": {"type": "boolean"}
							},
							"required": ["kind", "value"]
						}
					}
				},
				"required": ["document_id", "entities"]
			}`),
			SideEffecting: true,
			Handler:       a.saveExtractedEntities,
		},
		{
			Name:        "document.list_extracted_entities",
			OwningAgent: "document",
			Description: "List the entities previously extracted from a document.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"document_id": {"type": "string"}},
				"required": ["document_id"]
			}`),
			Handler: a.listExtractedEntities,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createDocumentArgs struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	Text      string `json:"text"`
	PatientID string `json:"patient_id"`
}

func (a *DocumentAgent) createDocument(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createDocumentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	d, err := a.documents.Create(ctx, document.Document{
		ID:         uuid.NewString(),
		Name:       args.Name,
		Format:     args.Format,
		Text:       args.Text,
		PatientID:  args.PatientID,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return d, nil
}

type getDocumentArgs struct {
	ID string `json:"id"`
}

func (a *DocumentAgent) getDocument(ctx context.Context, raw json.RawMessage) (any, error) {
	var args getDocumentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	d, err := a.documents.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return d, nil
}

type saveExtractedEntitiesArgs struct {
	DocumentID string                     `json:"document_id"`
	Entities   []document.ExtractedEntity `json:"entities"`
}

func (a *DocumentAgent) saveExtractedEntities(ctx context.Context, raw json.RawMessage) (any, error) {
	var args saveExtractedEntitiesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	for i := range args.Entities {
		if args.Entities[i].ID == "" {
			args.Entities[i].ID = uuid.NewString()
		}
		args.Entities[i].DocumentID = args.DocumentID
	}
	saved, err := a.documents.SaveEntities(ctx, args.DocumentID, args.Entities)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return saved, nil
}

type listExtractedEntitiesArgs struct {
	DocumentID string `json:"document_id"`
}

func (a *DocumentAgent) listExtractedEntities(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listExtractedEntitiesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.documents.ListEntities(ctx, args.DocumentID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}
