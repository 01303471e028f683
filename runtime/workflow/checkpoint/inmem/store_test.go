package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/runtime/workflow/checkpoint"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := checkpoint.Key{SessionID: "sess-1", WorkflowKind: "admission"}

	rec, err := s.Save(ctx, key, 0, []byte(`{"current_node":"validate_patient"}`))
	require.NoError(t, err)
	require.Equal(t, 1, rec.Version)

	loaded, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, rec.Version, loaded.Version)
	require.JSONEq(t, `{"current_node":"validate_patient"}`, string(loaded.State))
}

func TestLoadUnknownKeyReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), checkpoint.Key{SessionID: "x", WorkflowKind: "admission"})
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := checkpoint.Key{SessionID: "sess-1", WorkflowKind: "admission"}

	_, err := s.Save(ctx, key, 0, []byte(`{}`))
	require.NoError(t, err)

	_, err = s.Save(ctx, key, 0, []byte(`{}`))
	require.ErrorIs(t, err, checkpoint.ErrVersionConflict)
}

func TestSaveRejectsCreateWithNonZeroExpectedVersion(t *testing.T) {
	s := New()
	_, err := s.Save(context.Background(), checkpoint.Key{SessionID: "sess-1", WorkflowKind: "admission"}, 3, []byte(`{}`))
	require.ErrorIs(t, err, checkpoint.ErrVersionConflict)
}

func TestSaveSucceedsWithCorrectExpectedVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := checkpoint.Key{SessionID: "sess-1", WorkflowKind: "admission"}

	first, err := s.Save(ctx, key, 0, []byte(`{"n":1}`))
	require.NoError(t, err)

	second, err := s.Save(ctx, key, first.Version, []byte(`{"n":2}`))
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)
}
