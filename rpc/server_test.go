package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/llm"
	"github.com/careflow-systems/hospital-core/orchestrator"
	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	sessioninmem "github.com/careflow-systems/hospital-core/runtime/session/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedModelClient returns one canned *model.Response per call, in order.
// Mirrors orchestrator_test.go's helper of the same name since this package
// needs the same scaffolding to exercise POST /chat end to end.
type scriptedModelClient struct {
	responses []*model.Response
	calls     int
}

func (s *scriptedModelClient) Complete(context.Context, *model.Request) (*model.Response, error) {
	if s.calls >= len(s.responses) {
		return nil, errors.New("scriptedModelClient: no more scripted responses")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedModelClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	return nil, nil
}

func textResponse(text string) *model.Response {
	return &model.Response{Content: []model.Message{{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.TextPart{Text: text}}}}}
}

func echoTool(name string) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        tools.Ident(name),
		OwningAgent: "test",
		Description: "echoes its input back as output",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"value":{"type":"string"}},"required":["value"]}`),
		Handler: func(_ context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Value string `json:"value"`
			}
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, err
			}
			return map[string]string{"value": in.Value}, nil
		},
	}
}

func newTestServer(t *testing.T, withOrchestrator bool) (*Server, *toolregistry.Registry) {
	t.Helper()
	reg := toolregistry.New()
	require.NoError(t, reg.Register(echoTool("test.echo")))

	var orch *orchestrator.Orchestrator
	if withOrchestrator {
		client := &scriptedModelClient{responses: []*model.Response{textResponse("hello back")}}
		router, err := llm.NewRouter(map[string]model.Client{"primary": client}, []string{"primary"})
		require.NoError(t, err)
		orch = orchestrator.New(reg, router, sessioninmem.New(0), orchestrator.Options{})
	}
	return New(reg, orch, Options{}), reg
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestListToolsReturnsRegisteredDescriptors(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodGet, "/tools/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tools []toolDescriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tools, 1)
	require.Equal(t, "test.echo", body.Tools[0].Name)
	require.Equal(t, "test", body.Tools[0].OwningAgent)
}

func TestCallToolSucceeds(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/tools/call", toolCallRequest{
		Name:      "test.echo",
		Arguments: json.RawMessage(`{"value":"hi"}`),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp toolCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.TraceID)
	require.Empty(t, resp.ErrorKind)
}

func TestCallToolUnknownNameReportsNotFound(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/tools/call", toolCallRequest{
		Name:      "test.does_not_exist",
		Arguments: json.RawMessage(`{}`),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp toolCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.ErrorKind)
}

func TestCallToolInvalidArgumentsReportsIssues(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/tools/call", toolCallRequest{
		Name:      "test.echo",
		Arguments: json.RawMessage(`{}`),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp toolCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, string(toolerrors.KindInvalidArguments), resp.ErrorKind)
	require.NotEmpty(t, resp.Issues)
}

func TestCallToolMissingNameIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/tools/call", toolCallRequest{Arguments: json.RawMessage(`{}`)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReportsToolAndAgentCounts(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, 1, resp.ToolCount)
	require.Equal(t, 1, resp.AgentCount)
}

func TestChatFinalizesWithoutToolCalls(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/chat", chatRequest{
		SessionID: "session-1",
		Message:   "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "session-1", resp.SessionID)
	require.Equal(t, "hello back", resp.AssistantText)
	require.Empty(t, resp.ErrorKind)
}

func TestChatMissingSessionIDIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/chat", chatRequest{Message: "hello"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatNotMountedWithoutOrchestrator(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := doRequest(t, s.NewEngine(), http.MethodPost, "/chat", chatRequest{SessionID: "s", Message: "hi"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
