package workflows

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/careflow-systems/hospital-core/runtime/engine"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
)

// ClinicalDecisionKind is the graph name registered with the workflow
// engine and the workflow_kind half of every clinical decision run's
// checkpoint key.
const ClinicalDecisionKind = "clinical_decision"

// ClinicalDecisionInput starts a clinical decision run: a patient and a
// free-text presenting complaint.
type ClinicalDecisionInput struct {
	PatientID string
	Query     string
}

// KnowledgeSnippet is one knowledge-base passage the search_knowledge node
// retrieved.
type KnowledgeSnippet struct {
	ID    string
	Text  string
	Score float32
}

// ClinicalDecisionState is the typed state threaded through the clinical
// decision graph (spec.md §4.4).
type ClinicalDecisionState struct {
	Input ClinicalDecisionInput

	Query             string
	PatientContext    string
	Symptoms          []string
	History           string
	KnowledgeSnippets []KnowledgeSnippet
	Differential      json.RawMessage
	Recommendations   json.RawMessage
	Confidence        float64
	Errors            []string

	// Node-local confidences feed score_confidence's deterministic,
	// monotonic aggregation. Kept on the state (rather than a local
	// variable) so they survive a resume from checkpoint.
	SymptomsConfidence     float64
	KnowledgeConfidence    float64
	DifferentialConfidence float64
	RecommendConfidence    float64
}

// clinicalEnvelopeView mirrors agents.clinicalEnvelope's wire shape; the
// graph only needs to read it back, not own the type.
type clinicalEnvelopeView struct {
	StructuredOutput  json.RawMessage `json:"structured_output"`
	Confidence        float64         `json:"confidence"`
	UsedKnowledgeRefs []string        `json:"used_knowledge_refs"`
}

// BuildClinicalDecisionGraph compiles the clinical decision graph:
// extract_symptoms -> retrieve_history -> search_knowledge -> differential
// -> recommend -> score_confidence -> finalize.
func BuildClinicalDecisionGraph() workflow.Graph[ClinicalDecisionState] {
	return workflow.Graph[ClinicalDecisionState]{
		Kind:  ClinicalDecisionKind,
		Start: "extract_symptoms",
		Nodes: map[string]workflow.Node[ClinicalDecisionState]{
			"extract_symptoms": {Name: "extract_symptoms", Run: extractSymptomsNode},
			"retrieve_history": {Name: "retrieve_history", Run: retrieveHistoryNode},
			"search_knowledge": {Name: "search_knowledge", Run: searchKnowledgeNode},
			"differential":     {Name: "differential", Run: differentialNode},
			"recommend":        {Name: "recommend", Run: recommendNode},
			"score_confidence": {Name: "score_confidence", Run: scoreConfidenceNode},
			"finalize":         {Name: "finalize", Run: finalizeClinicalDecisionNode},
		},
	}
}

// extractSymptomsNode splits the free-text query into a symptom list, then
// asks the Clinical AI agent to turn it into a structured summary. Splitting
// is a deterministic local transform; only the structured-summary step
// crosses the tool boundary.
func extractSymptomsNode(wc engine.WorkflowContext, state *ClinicalDecisionState) (string, error) {
	state.Query = state.Input.Query
	state.Symptoms = splitSymptoms(state.Input.Query)
	if len(state.Symptoms) == 0 {
		return "", workflow.Permanent(fmt.Errorf("clinical_decision: no symptoms found in query"))
	}

	envelope, err := callTool[clinicalEnvelopeView](wc, "clinical.enhanced_symptom_analysis", map[string]any{
		"patient_id": state.Input.PatientID,
		"symptoms":   state.Symptoms,
	})
	if err != nil {
		return "", err
	}
	state.SymptomsConfidence = clamp01(envelope.Confidence)
	return "retrieve_history", nil
}

func splitSymptoms(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	symptoms := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			symptoms = append(symptoms, s)
		}
	}
	return symptoms
}

// retrieveHistoryNode aggregates the patient's medical history into a text
// summary used as context by the remaining LLM-bearing nodes. The lookup
// itself is deterministic, so it contributes full confidence.
func retrieveHistoryNode(wc engine.WorkflowContext, state *ClinicalDecisionState) (string, error) {
	history, err := callTool[map[string]any](wc, "patient.get_patient_medical_history", map[string]any{
		"id": state.Input.PatientID,
	})
	if err != nil {
		return "", err
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", workflow.Permanent(fmt.Errorf("clinical_decision: marshal medical history: %w", err))
	}
	state.History = string(historyJSON)
	state.PatientContext = fmt.Sprintf("patient_id=%s", state.Input.PatientID)
	return "search_knowledge", nil
}

func searchKnowledgeNode(wc engine.WorkflowContext, state *ClinicalDecisionState) (string, error) {
	result, err := callTool[struct {
		Matches []KnowledgeSnippet `json:"matches"`
	}](wc, "clinical.search_knowledge", map[string]any{
		"query": state.Query,
	})
	if err != nil {
		return "", err
	}
	state.KnowledgeSnippets = result.Matches

	if len(result.Matches) == 0 {
		state.KnowledgeConfidence = 0.5
		return "differential", nil
	}
	var sum float32
	for _, m := range result.Matches {
		sum += m.Score
	}
	state.KnowledgeConfidence = clamp01(float64(sum / float32(len(result.Matches))))
	return "differential", nil
}

func differentialNode(wc engine.WorkflowContext, state *ClinicalDecisionState) (string, error) {
	envelope, err := callTool[clinicalEnvelopeView](wc, "clinical.enhanced_differential_diagnosis", map[string]any{
		"patient_id": state.Input.PatientID,
		"symptoms":   state.Symptoms,
		"history":    state.History,
	})
	if err != nil {
		return "", err
	}
	state.Differential = envelope.StructuredOutput
	state.DifferentialConfidence = clamp01(envelope.Confidence)
	return "recommend", nil
}

func recommendNode(wc engine.WorkflowContext, state *ClinicalDecisionState) (string, error) {
	diagnosis := state.Query
	if len(state.Differential) > 0 {
		diagnosis = string(state.Differential)
	}
	envelope, err := callTool[clinicalEnvelopeView](wc, "clinical.enhanced_treatment_recommendations", map[string]any{
		"patient_id": state.Input.PatientID,
		"diagnosis":  diagnosis,
	})
	if err != nil {
		return "", err
	}
	state.Recommendations = envelope.StructuredOutput
	state.RecommendConfidence = clamp01(envelope.Confidence)
	return "score_confidence", nil
}

// scoreConfidenceNode aggregates every node-local confidence into the
// run's overall Confidence. The mean is deterministic for fixed inputs and
// monotonic in each input, satisfying spec.md §4.4's requirement on the
// terminal node's aggregation function.
func scoreConfidenceNode(_ engine.WorkflowContext, state *ClinicalDecisionState) (string, error) {
	sum := state.SymptomsConfidence + state.KnowledgeConfidence + state.DifferentialConfidence + state.RecommendConfidence
	state.Confidence = clamp01(sum / 4)
	return "finalize", nil
}

func finalizeClinicalDecisionNode(_ engine.WorkflowContext, _ *ClinicalDecisionState) (string, error) {
	return workflow.End, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
