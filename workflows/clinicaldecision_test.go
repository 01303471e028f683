package workflows

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
)

func TestClinicalDecisionGraphHappyPath(t *testing.T) {
	h := newTestHarness(t, json.RawMessage(`{"result":{"summary":"stable"},"confidence":0.8}`))
	ctx := context.Background()

	_, err := h.patients.Create(ctx, patient.Patient{ID: "patient-1", PatientCode: "P1", Name: "Jane Roe", Status: patient.StatusActive})
	require.NoError(t, err)

	require.NoError(t, workflow.RegisterGraph(ctx, h.we, BuildClinicalDecisionGraph()))

	input := ClinicalDecisionInput{PatientID: "patient-1", Query: "fever, cough, fatigue"}
	_, err = workflow.Start(ctx, h.we, ClinicalDecisionKind, "clinical-session-1", ClinicalDecisionState{Input: input})
	require.NoError(t, err)

	final, err := workflow.Await[ClinicalDecisionState](ctx, h.we, ClinicalDecisionKind, "clinical-session-1")
	require.NoError(t, err)

	require.Equal(t, []string{"fever", "cough", "fatigue"}, final.Symptoms)
	require.NotEmpty(t, final.History)
	require.NotEmpty(t, final.KnowledgeSnippets)
	require.JSONEq(t, `{"summary":"stable"}`, string(final.Differential))
	require.JSONEq(t, `{"summary":"stable"}`, string(final.Recommendations))
	// Mean of the symptom/differential/treatment envelope confidences (0.8
	// each) and the knowledge node's mean match score (0.9, from the stub
	// knowledge store's single kb-1 match).
	require.InDelta(t, 0.825, final.Confidence, 1e-9)
	require.Empty(t, final.Errors)
}

func TestClinicalDecisionGraphEmptyQueryFails(t *testing.T) {
	h := newTestHarness(t, json.RawMessage(`{"result":{},"confidence":0.5}`))
	ctx := context.Background()

	_, err := h.patients.Create(ctx, patient.Patient{ID: "patient-2", PatientCode: "P2", Name: "John Doe", Status: patient.StatusActive})
	require.NoError(t, err)

	require.NoError(t, workflow.RegisterGraph(ctx, h.we, BuildClinicalDecisionGraph()))

	input := ClinicalDecisionInput{PatientID: "patient-2", Query: "   "}
	_, err = workflow.Start(ctx, h.we, ClinicalDecisionKind, "clinical-session-empty", ClinicalDecisionState{Input: input})
	require.NoError(t, err)

	_, err = workflow.Await[ClinicalDecisionState](ctx, h.we, ClinicalDecisionKind, "clinical-session-empty")
	require.Error(t, err)
}

func TestScoreConfidenceNodeIsMeanOfFour(t *testing.T) {
	state := &ClinicalDecisionState{
		SymptomsConfidence:     1.0,
		KnowledgeConfidence:    0.5,
		DifferentialConfidence: 0.5,
		RecommendConfidence:    0.0,
	}
	next, err := scoreConfidenceNode(nil, state)
	require.NoError(t, err)
	require.Equal(t, "finalize", next)
	require.InDelta(t, 0.5, state.Confidence, 1e-9)
}
