package workflows

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/agents"
	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/llm"
	repoinmem "github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	engineinmem "github.com/careflow-systems/hospital-core/runtime/engine/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
	checkpointinmem "github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint/inmem"
	"github.com/careflow-systems/hospital-core/vectorstore"
)

// stubModelClient returns a single fixed tool call on every Complete, mirroring
// the Clinical AI agent's test stub.
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

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
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

// testHarness wires every repository and agent the three compiled graphs'
// tools depend on, plus a workflow.Engine ready to register and run graphs
// against them.
type testHarness struct {
	reg *toolregistry.Registry
	we  *workflow.Engine

	patients  *repoinmem.PatientRepository
	beds      *repoinmem.BedRepository
	staff     *repoinmem.StaffRepository
	equipment *repoinmem.EquipmentRepository
	documents *repoinmem.DocumentRepository
}

// newTestHarness wires a fresh set of in-memory repositories, every agent a
// compiled graph's nodes call through the Tool Registry, and a workflow.Engine
// ready for RegisterGraph. modelPayload is the structured-output payload the
// stub LLM client returns on every call (only the clinical decision graph's
// tests exercise it).
func newTestHarness(t *testing.T, modelPayload json.RawMessage) *testHarness {
	t.Helper()
	ctx := context.Background()

	patients := repoinmem.NewPatientRepository()
	beds := repoinmem.NewBedRepository()
	staff := repoinmem.NewStaffRepository()
	assignments := repoinmem.NewStaffAssignmentRepository()
	equipment := repoinmem.NewEquipmentRepository()
	equipmentUsages := repoinmem.NewEquipmentUsageRepository()
	appointments := repoinmem.NewAppointmentRepository()
	supplyUsages := repoinmem.NewUsageRepository()
	documents := repoinmem.NewDocumentRepository()

	manager := bedlifecycle.New(beds, patients)

	reg := toolregistry.New()
	require.NoError(t, agents.NewPatientAgent(patients, assignments, equipmentUsages, supplyUsages, appointments, 0).Register(reg))
	require.NoError(t, agents.NewBedAgent(beds, manager).Register(reg))
	require.NoError(t, agents.NewStaffAgent(staff, assignments).Register(reg))
	require.NoError(t, agents.NewEquipmentAgent(equipment, equipmentUsages).Register(reg))
	require.NoError(t, agents.NewDocumentAgent(documents).Register(reg))

	router, err := llm.NewRouter(map[string]model.Client{"primary": &stubModelClient{payload: modelPayload}}, []string{"primary"})
	require.NoError(t, err)
	knowledge := stubKnowledgeStore{matches: []vectorstore.Match{{ID: "kb-1", Text: "relevant passage", Score: 0.9}}}
	require.NoError(t, agents.NewClinicalAgent(patients, router, stubEmbedder{}, knowledge).Register(reg))

	eng := engineinmem.New(engineinmem.Options{})
	require.NoError(t, RegisterActivities(ctx, eng, reg))

	we, err := workflow.New(eng, checkpointinmem.New(), workflow.Options{})
	require.NoError(t, err)

	return &testHarness{
		reg:       reg,
		we:        we,
		patients:  patients,
		beds:      beds,
		staff:     staff,
		equipment: equipment,
		documents: documents,
	}
}
