package openaillm

import (
	"context"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
)

type stubChatClient struct {
	lastParams openai.ChatCompletionNewParams
	resp       *openai.ChatCompletion
	err        error

	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *stubChatClient) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubChatClient) NewStreaming(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk] {
	s.lastParams = body
	if s.stream == nil {
		dec := &noopDecoder{}
		s.stream = ssestream.NewStream[openai.ChatCompletionChunk](dec, nil)
	}
	return s.stream
}

type noopDecoder struct{}

func (n *noopDecoder) Event() ssestream.Event { return ssestream.Event{} }
func (n *noopDecoder) Next() bool             { return false }
func (n *noopDecoder) Close() error           { return nil }
func (n *noopDecoder) Err() error             { return nil }

func TestComplete_TextOnly(t *testing.T) {
	stub := &stubChatClient{}
	cl, err := New(Options{Client: stub, DefaultModel: "gpt-4o", MaxTokens: 128})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "hello"}}},
		},
	}

	stub.resp = &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{
				FinishReason: "stop",
				Message:      openai.ChatCompletionMessage{Content: "world"},
			},
		},
		Usage: openai.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	resp, err := cl.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.Content) != 1 {
		t.Fatalf("expected 1 content message, got %d", len(resp.Content))
	}
	if got := resp.Content[0].Parts[0].(model.TextPart).Text; got != "world" {
		t.Fatalf("unexpected text %q", got)
	}
	if resp.StopReason != "stop" {
		t.Fatalf("unexpected stop reason %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 || resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if string(stub.lastParams.Model) != "gpt-4o" {
		t.Fatalf("unexpected model %q", stub.lastParams.Model)
	}
}

func TestComplete_ToolCall(t *testing.T) {
	stub := &stubChatClient{}
	cl, err := New(Options{Client: stub, DefaultModel: "gpt-4o"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "call tool"}}},
		},
		Tools: []*model.ToolDefinition{
			{Name: "test.tool", Description: "test tool", InputSchema: map[string]any{"type": "object"}},
		},
	}

	stub.resp = &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{
				FinishReason: "tool_calls",
				Message: openai.ChatCompletionMessage{
					ToolCalls: []openai.ChatCompletionMessageToolCall{
						{
							ID: "call_1",
							Function: openai.ChatCompletionMessageToolCallFunction{
								Name:      "test.tool",
								Arguments: `{"x":1}`,
							},
						},
					},
				},
			},
		},
	}

	resp, err := cl.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if string(resp.ToolCalls[0].Name) != "test.tool" {
		t.Fatalf("unexpected tool name %q", resp.ToolCalls[0].Name)
	}
	if stub.lastParams.Tools == nil || len(stub.lastParams.Tools) != 1 {
		t.Fatalf("expected tool definition to be sent")
	}
}

func TestComplete_RequiresMessages(t *testing.T) {
	stub := &stubChatClient{}
	cl, err := New(Options{Client: stub, DefaultModel: "gpt-4o"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cl.Complete(context.Background(), &model.Request{}); err == nil {
		t.Fatalf("expected error for empty messages")
	}
}

func TestNew_RequiresClient(t *testing.T) {
	if _, err := New(Options{DefaultModel: "gpt-4o"}); err == nil {
		t.Fatalf("expected error when client is nil")
	}
}

func TestNew_RequiresDefaultModel(t *testing.T) {
	if _, err := New(Options{Client: &stubChatClient{}}); err == nil {
		t.Fatalf("expected error when default model is empty")
	}
}
