package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/session"
)

func TestGetOrCreateIsIdempotentForExistingSession(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := s.GetOrCreate(ctx, "sess-1", nil, now)
	require.NoError(t, err)

	second, err := s.GetOrCreate(ctx, "sess-1", nil, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestAppendMessageIsOrderedAndAppendOnly(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	now := time.Now()

	_, err := s.GetOrCreate(ctx, "sess-1", nil, now)
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, "sess-1", model.Message{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "hi"}}}, now)
	require.NoError(t, err)
	got, err := s.AppendMessage(ctx, "sess-1", model.Message{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.TextPart{Text: "hello"}}}, now)
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	require.Equal(t, model.ConversationRoleUser, got.Messages[0].Role)
	require.Equal(t, model.ConversationRoleAssistant, got.Messages[1].Role)
}

func TestAppendMessageUnknownSessionReturnsNotFound(t *testing.T) {
	s := New(10)
	_, err := s.AppendMessage(context.Background(), "missing", model.Message{}, time.Now())
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSetWorkflowStateTracksByKind(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	now := time.Now()
	_, err := s.GetOrCreate(ctx, "sess-1", nil, now)
	require.NoError(t, err)

	got, err := s.SetWorkflowState(ctx, "sess-1", "admission", session.WorkflowStateRef{RunID: "run-1", Status: "running"}, now)
	require.NoError(t, err)
	require.Equal(t, "run-1", got.WorkflowStates["admission"].RunID)
}

func TestEvictsLeastRecentlyUsedBeyondCapacity(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	now := time.Now()

	_, err := s.GetOrCreate(ctx, "a", nil, now)
	require.NoError(t, err)
	_, err = s.GetOrCreate(ctx, "b", nil, now)
	require.NoError(t, err)

	// touch "a" so "b" becomes least-recently-used
	_, err = s.GetOrCreate(ctx, "a", nil, now)
	require.NoError(t, err)

	_, err = s.GetOrCreate(ctx, "c", nil, now)
	require.NoError(t, err)

	_, found, err := s.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, found, "least-recently-used session must be evicted once capacity is exceeded")

	_, found, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = s.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, found)
}

func TestMutationsDoNotLeakInternalSliceAliasing(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	now := time.Now()
	_, err := s.GetOrCreate(ctx, "sess-1", nil, now)
	require.NoError(t, err)

	got, err := s.AppendMessage(ctx, "sess-1", model.Message{Role: model.ConversationRoleUser}, now)
	require.NoError(t, err)
	got.Messages[0].Role = model.ConversationRoleAssistant

	reloaded, found, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, model.ConversationRoleUser, reloaded.Messages[0].Role, "callers mutating a returned snapshot must not affect stored state")
}
