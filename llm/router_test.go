package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
)

type stubModelClient struct {
	resp *model.Response
	err  error
}

func (s *stubModelClient) Complete(context.Context, *model.Request) (*model.Response, error) {
	return s.resp, s.err
}

func (s *stubModelClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	return nil, s.err
}

func TestRouterFallsThroughToNextProvider(t *testing.T) {
	primary := &stubModelClient{err: errors.New("boom")}
	fallback := &stubModelClient{resp: &model.Response{StopReason: "end_turn"}}

	r, err := NewRouter(map[string]model.Client{"primary": primary, "fallback": fallback}, []string{"primary", "fallback"})
	require.NoError(t, err)

	resp, err := r.Complete(context.Background(), &model.Request{})
	require.NoError(t, err)
	assert.Equal(t, "end_turn", resp.StopReason)
}

func TestRouterReturnsTransientUpstreamWhenAllFail(t *testing.T) {
	primary := &stubModelClient{err: errors.New("boom")}
	fallback := &stubModelClient{err: model.ErrRateLimited}

	r, err := NewRouter(map[string]model.Client{"primary": primary, "fallback": fallback}, []string{"primary", "fallback"})
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), &model.Request{})
	require.Error(t, err)
	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, FailureClassTransientUpstream, routerErr.Class)
	assert.Len(t, routerErr.Attempts, 2)
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
}

func TestNewRouterRequiresConfiguredProvider(t *testing.T) {
	_, err := NewRouter(map[string]model.Client{}, []string{"missing"})
	assert.Error(t, err)
}

func TestNewRouterRequiresOrder(t *testing.T) {
	_, err := NewRouter(map[string]model.Client{"a": &stubModelClient{}}, nil)
	assert.Error(t, err)
}
