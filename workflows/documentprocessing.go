package workflows

import (
	"fmt"
	"strings"

	"github.com/careflow-systems/hospital-core/domain/document"
	"github.com/careflow-systems/hospital-core/runtime/engine"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
)

// DocumentProcessingKind is the graph name registered with the workflow
// engine and the workflow_kind half of every document processing run's
// checkpoint key.
const DocumentProcessingKind = "document_processing"

// DocumentProcessingInput is the raw document that starts a processing run.
type DocumentProcessingInput struct {
	Name      string
	Format    string
	Text      string
	PatientID string
}

// DocumentProcessingState is the typed state threaded through the document
// processing graph (spec.md §4.4).
type DocumentProcessingState struct {
	Input DocumentProcessingInput

	Document          document.Document
	ExtractedEntities []document.ExtractedEntity
	ValidatedEntities []document.ExtractedEntity
	StoredRefs        []string
	Errors            []string
}

// BuildDocumentProcessingGraph compiles the document processing graph:
// parse -> extract_entities -> validate_entities -> persist.
func BuildDocumentProcessingGraph() workflow.Graph[DocumentProcessingState] {
	return workflow.Graph[DocumentProcessingState]{
		Kind:  DocumentProcessingKind,
		Start: "parse",
		Nodes: map[string]workflow.Node[DocumentProcessingState]{
			"parse":             {Name: "parse", Run: parseDocumentNode},
			"extract_entities":  {Name: "extract_entities", Run: extractDocumentEntitiesNode},
			"validate_entities": {Name: "validate_entities", Run: validateDocumentEntitiesNode},
			"persist":           {Name: "persist", Run: persistDocumentEntitiesNode},
		},
	}
}

func parseDocumentNode(wc engine.WorkflowContext, state *DocumentProcessingState) (string, error) {
	d, err := callTool[document.Document](wc, "document.create_document", map[string]any{
		"name":       state.Input.Name,
		"format":     state.Input.Format,
		"text":       state.Input.Text,
		"patient_id": state.Input.PatientID,
	})
	if err != nil {
		return "", err
	}
	state.Document = d
	return "extract_entities", nil
}

// entityGazetteer is a small, deterministic stand-in for a real NLP/ML
// entity extractor, which is out of scope for this core (SPEC_FULL.md's
// Clinical AI agent wraps LLM chains for diagnosis support, not document
// NLP). It maps a fixed vocabulary of clinical terms to entity kinds.
var entityGazetteer = map[string]string{
	"fever":      "symptom",
	"cough":      "symptom",
	"nausea":     "symptom",
	"fatigue":    "symptom",
	"headache":   "symptom",
	"chest pain": "symptom",
	"aspirin":    "medication",
	"ibuprofen":  "medication",
	"insulin":    "medication",
	"metformin":  "medication",
	"penicillin": "allergy",
	"latex":      "allergy",
	"peanut":     "allergy",
}

// extractDocumentEntitiesNode is a pure transform over the parsed
// document's text: no external call, so it needs no retry classification.
func extractDocumentEntitiesNode(_ engine.WorkflowContext, state *DocumentProcessingState) (string, error) {
	lower := strings.ToLower(state.Document.Text)
	var extracted []document.ExtractedEntity
	for term, kind := range entityGazetteer {
		if strings.Contains(lower, term) {
			extracted = append(extracted, document.ExtractedEntity{
				DocumentID: state.Document.ID,
				Kind:       kind,
				Value:      term,
			})
		}
	}
	state.ExtractedEntities = extracted
	return "validate_entities", nil
}

var allowedEntityKinds = map[string]bool{
	"symptom":    true,
	"diagnosis":  true,
	"medication": true,
	"allergy":    true,
	"procedure":  true,
}

// validateDocumentEntitiesNode rejects entities failing type constraints,
// recording failures in Errors without halting the run unless every
// extracted entity is invalid (spec.md §4.4).
func validateDocumentEntitiesNode(_ engine.WorkflowContext, state *DocumentProcessingState) (string, error) {
	if len(state.ExtractedEntities) == 0 {
		return "persist", nil
	}

	valid := make([]document.ExtractedEntity, 0, len(state.ExtractedEntities))
	for _, e := range state.ExtractedEntities {
		if !allowedEntityKinds[e.Kind] {
			state.Errors = append(state.Errors, fmt.Sprintf("entity %q: unknown kind %q", e.Value, e.Kind))
			continue
		}
		if strings.TrimSpace(e.Value) == "" {
			state.Errors = append(state.Errors, "entity with empty value rejected")
			continue
		}
		e.Valid = true
		valid = append(valid, e)
	}

	if len(valid) == 0 {
		return "", workflow.Permanent(fmt.Errorf("document_processing: all %d extracted entities failed validation", len(state.ExtractedEntities)))
	}
	state.ValidatedEntities = valid
	return "persist", nil
}

func persistDocumentEntitiesNode(wc engine.WorkflowContext, state *DocumentProcessingState) (string, error) {
	if len(state.ValidatedEntities) == 0 {
		return workflow.End, nil
	}
	saved, err := callTool[[]document.ExtractedEntity](wc, "document.save_extracted_entities", map[string]any{
		"document_id": state.Document.ID,
		"entities":    state.ValidatedEntities,
	})
	if err != nil {
		return "", err
	}
	refs := make([]string, 0, len(saved))
	for _, e := range saved {
		refs = append(refs, e.ID)
	}
	state.StoredRefs = refs
	return workflow.End, nil
}
