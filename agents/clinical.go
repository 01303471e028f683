package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/embedding"
	"github.com/careflow-systems/hospital-core/llm"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
	"github.com/careflow-systems/hospital-core/vectorstore"
)

const defaultKnowledgeTopK = 5

// structuredResultSchema is the shared output shape every Clinical AI tool
// forces the model to emit: a free-form structured payload plus the model's
// own confidence in it. The agent never relabels this as a diagnosis; the
// envelope the tool returns still carries used_knowledge_refs so a human
// can trace which knowledge snippets informed the output.
const structuredResultSchema = `{
	"type": "object",
	"properties": {
		"result": {"type": "object"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["result", "confidence"]
}`

// ClinicalAgent wraps LLM-bearing chains as tools (spec.md §4.5). It holds
// no authoritative clinical state of its own — the only agent in the
// Domain Agents layer permitted to hold LLM state, per spec.md's Agent
// definition. Every tool returns a {structured_output, confidence,
// used_knowledge_refs} envelope and never issues an authoritative
// diagnosis.
type ClinicalAgent struct {
	patients  patient.Repository
	router    *llm.Router
	embedder  embedding.Provider
	knowledge vectorstore.Store
}

// NewClinicalAgent constructs a ClinicalAgent.
func NewClinicalAgent(patients patient.Repository, router *llm.Router, embedder embedding.Provider, knowledge vectorstore.Store) *ClinicalAgent {
	return &ClinicalAgent{patients: patients, router: router, embedder: embedder, knowledge: knowledge}
}

// Register adds every Clinical AI agent tool to reg.
func (a *ClinicalAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "clinical.search_knowledge",
			OwningAgent: "clinical",
			Description: "Search the clinical knowledge base for passages relevant to a query.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string"},
					"top_k": {"type": "integer", "minimum": 1}
				},
				"required": ["query"]
			}`),
			Handler: a.searchKnowledge,
		},
		{
			Name:        "clinical.enhanced_symptom_analysis",
			OwningAgent: "clinical",
			Description: "Analyze a patient's reported symptoms into a structured clinical summary. Not a diagnosis.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"patient_id": {"type": "string"},
					"symptoms": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["patient_id", "symptoms"]
			}`),
			Handler: a.enhancedSymptomAnalysis,
		},
		{
			Name:        "clinical.enhanced_differential_diagnosis",
			OwningAgent: "clinical",
			Description: "Produce a ranked differential of candidate conditions consistent with the patient's symptoms and history. Suggestions only, never authoritative.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"patient_id": {"type": "string"},
					"symptoms": {"type": "array", "items": {"type": "string"}},
					"history": {"type": "string"}
				},
				"required": ["patient_id", "symptoms"]
			}`),
			Handler: a.enhancedDifferentialDiagnosis,
		},
		{
			Name:        "clinical.enhanced_treatment_recommendations",
			OwningAgent: "clinical",
			Description: "Suggest candidate treatment options for a working diagnosis. Suggestions only, never authoritative.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"patient_id": {"type": "string"},
					"diagnosis": {"type": "string"}
				},
				"required": ["patient_id", "diagnosis"]
			}`),
			Handler: a.enhancedTreatmentRecommendations,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

// clinicalEnvelope is the uniform shape every LLM-bearing Clinical AI tool
// returns (spec.md §4.5).
type clinicalEnvelope struct {
	StructuredOutput  json.RawMessage `json:"structured_output"`
	Confidence        float64         `json:"confidence"`
	UsedKnowledgeRefs []string        `json:"used_knowledge_refs"`
}

type searchKnowledgeArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (a *ClinicalAgent) searchKnowledge(ctx context.Context, raw json.RawMessage) (any, error) {
	var args searchKnowledgeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	matches, err := a.retrieve(ctx, args.Query, args.TopK)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matches": matches}, nil
}

// retrieve embeds query and returns the topK nearest knowledge-base
// matches. topK defaults to defaultKnowledgeTopK when unset.
func (a *ClinicalAgent) retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = defaultKnowledgeTopK
	}
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindTransientUpstream, "embed query", err)
	}
	matches, err := a.knowledge.Query(ctx, vec, topK)
	if err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindTransientUpstream, "query knowledge base", err)
	}
	return matches, nil
}

// runChain retrieves knowledge for query, builds a prompt from context plus
// the retrieved snippets, forces a structured result from the model, and
// assembles the uniform clinicalEnvelope.
func (a *ClinicalAgent) runChain(ctx context.Context, patientContext, instruction, query string) (clinicalEnvelope, error) {
	matches, err := a.retrieve(ctx, query, defaultKnowledgeTopK)
	if err != nil {
		return clinicalEnvelope{}, err
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nPatient context:\n")
	b.WriteString(patientContext)
	if len(matches) > 0 {
		b.WriteString("\n\nRelevant knowledge base passages:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- [%s] %s\n", m.ID, m.Text)
		}
	}
	b.WriteString("\n\nRespond by calling the tool with your structured result and your confidence in it.")

	out, err := a.router.Structured(ctx, b.String(), json.RawMessage(structuredResultSchema))
	if err != nil {
		return clinicalEnvelope{}, toolerrors.NewWithCause(toolerrors.KindTransientUpstream, "structured output failed", err)
	}

	var parsed struct {
		Result     json.RawMessage `json:"result"`
		Confidence float64         `json:"confidence"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return clinicalEnvelope{}, toolerrors.NewWithCause(toolerrors.KindTransientUpstream, "malformed structured output", err)
	}

	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m.ID)
	}
	return clinicalEnvelope{StructuredOutput: parsed.Result, Confidence: parsed.Confidence, UsedKnowledgeRefs: refs}, nil
}

func (a *ClinicalAgent) patientContext(ctx context.Context, patientID string) (string, error) {
	p, err := a.patients.Get(ctx, patientID)
	if err != nil {
		return "", translateRepoErr(err)
	}
	return fmt.Sprintf("patient_id=%s code=%s name=%s status=%s", p.ID, p.PatientCode, p.Name, p.Status), nil
}

type enhancedSymptomAnalysisArgs struct {
	PatientID string   `json:"patient_id"`
	Symptoms  []string `json:"symptoms"`
}

func (a *ClinicalAgent) enhancedSymptomAnalysis(ctx context.Context, raw json.RawMessage) (any, error) {
	var args enhancedSymptomAnalysisArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	ctxStr, err := a.patientContext(ctx, args.PatientID)
	if err != nil {
		return nil, err
	}
	query := "symptoms: " + strings.Join(args.Symptoms, ", ")
	return a.runChain(ctx,
		ctxStr,
		"Analyze the following reported symptoms into a structured clinical summary (affected systems, severity signals, red flags). This is decision support only, not a diagnosis.",
		query,
	)
}

type enhancedDifferentialDiagnosisArgs struct {
	PatientID string   `json:"patient_id"`
	Symptoms  []string `json:"symptoms"`
	History   string   `json:"history"`
}

func (a *ClinicalAgent) enhancedDifferentialDiagnosis(ctx context.Context, raw json.RawMessage) (any, error) {
	var args enhancedDifferentialDiagnosisArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	ctxStr, err := a.patientContext(ctx, args.PatientID)
	if err != nil {
		return nil, err
	}
	if args.History != "" {
		ctxStr += "\nhistory: " + args.History
	}
	query := "differential diagnosis for symptoms: " + strings.Join(args.Symptoms, ", ")
	return a.runChain(ctx,
		ctxStr,
		"Propose a ranked differential of candidate conditions consistent with these symptoms and history. Rank by plausibility, not certainty. This is decision support only, never an authoritative diagnosis.",
		query,
	)
}

type enhancedTreatmentRecommendationsArgs struct {
	PatientID string `json:"patient_id"`
	Diagnosis string `json:"diagnosis"`
}

func (a *ClinicalAgent) enhancedTreatmentRecommendations(ctx context.Context, raw json.RawMessage) (any, error) {
	var args enhancedTreatmentRecommendationsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	ctxStr, err := a.patientContext(ctx, args.PatientID)
	if err != nil {
		return nil, err
	}
	ctxStr += "\nworking diagnosis: " + args.Diagnosis
	query := "treatment options for: " + args.Diagnosis
	return a.runChain(ctx,
		ctxStr,
		"Suggest candidate treatment options for the working diagnosis, noting any contraindication signals visible in the patient context. This is decision support only, never an authoritative order.",
		query,
	)
}
