package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/llm"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
	"github.com/careflow-systems/hospital-core/vectorstore"
)

type stubModelClient struct {
	payload json.RawMessage
}

func (s *stubModelClient) Complete(context.Context, *model.Request) (*model.Response, error) {
	return &model.Response{ToolCalls: []model.ToolCall{{Name: "emit_structured_output", Payload: s.payload}}}, nil
}

func (s *stubModelClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	return nil, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error)          { return []float32{0.1, 0.2}, nil }
func (stubEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) { return nil, nil }
func (stubEmbedder) Name() string                                              { return "stub" }
func (stubEmbedder) Dimension() int                                            { return 2 }

type stubKnowledgeStore struct {
	matches []vectorstore.Match
}

func (s stubKnowledgeStore) Upsert(context.Context, []vectorstore.Record) error { return nil }
func (s stubKnowledgeStore) Query(context.Context, []float32, int) ([]vectorstore.Match, error) {
	return s.matches, nil
}

func newTestClinicalAgent(payload json.RawMessage) (*ClinicalAgent, *toolregistry.Registry, *inmem.PatientRepository) {
	patients := inmem.NewPatientRepository()
	router, err := llm.NewRouter(map[string]model.Client{"primary": &stubModelClient{payload: payload}}, []string{"primary"})
	if err != nil {
		panic(err)
	}
	store := stubKnowledgeStore{matches: []vectorstore.Match{{ID: "kb-1", Text: "relevant passage", Score: 0.9}}}
	a := NewClinicalAgent(patients, router, stubEmbedder{}, store)
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg, patients
}

func TestEnhancedSymptomAnalysisReturnsEnvelope(t *testing.T) {
	_, reg, patients := newTestClinicalAgent(json.RawMessage(`{"result":{"summary":"mild"},"confidence":0.7}`))
	ctx := context.Background()
	_, err := patients.Create(ctx, patient.Patient{ID: "p1", PatientCode: "P1", Name: "Jane Roe", Status: patient.StatusActive})
	require.NoError(t, err)

	res := reg.Call(ctx, "clinical.enhanced_symptom_analysis", json.RawMessage(`{"patient_id":"p1","symptoms":["fever","cough"]}`))
	require.True(t, res.OK, "%+v", res)
	env := res.Data.(clinicalEnvelope)
	require.Equal(t, 0.7, env.Confidence)
	require.Equal(t, []string{"kb-1"}, env.UsedKnowledgeRefs)
	require.JSONEq(t, `{"summary":"mild"}`, string(env.StructuredOutput))
}

func TestEnhancedDifferentialDiagnosisUnknownPatient(t *testing.T) {
	_, reg, _ := newTestClinicalAgent(json.RawMessage(`{"result":{},"confidence":0.5}`))
	res := reg.Call(context.Background(), "clinical.enhanced_differential_diagnosis", json.RawMessage(`{"patient_id":"missing","symptoms":["fever"]}`))
	require.False(t, res.OK)
}

func TestSearchKnowledgeReturnsMatches(t *testing.T) {
	_, reg, _ := newTestClinicalAgent(json.RawMessage(`{"result":{},"confidence":0.5}`))
	res := reg.Call(context.Background(), "clinical.search_knowledge", json.RawMessage(`{"query":"chest pain"}`))
	require.True(t, res.OK, "%+v", res)
	out := res.Data.(map[string]any)
	matches := out["matches"].([]vectorstore.Match)
	require.Len(t, matches, 1)
	require.Equal(t, "kb-1", matches[0].ID)
}
