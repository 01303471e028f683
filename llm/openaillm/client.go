// Package openaillm provides a model.Client implementation backed by the
// OpenAI Chat Completions API, translating hospital-core requests into
// openai-go calls and mapping responses (text, tool calls, usage) back into
// the generic runtime/agent/model structures. Per SPEC_FULL.md §4.8 this
// adapter is the fallback tried after llm/anthropicllm.
package openaillm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
)

type (
	// ChatClient captures the subset of the openai-go client used by the
	// adapter, so tests can substitute a mock instead of a live API.
	ChatClient interface {
		New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
		NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
	}

	// Options configures the OpenAI adapter.
	Options struct {
		// Client is the openai-go chat completions client (or a mock).
		Client ChatClient

		// DefaultModel is used when Request.Model is empty.
		DefaultModel string

		// MaxTokens is the default completion cap when a request omits one.
		MaxTokens int

		// Temperature is used when a request omits one.
		Temperature float64
	}

	// Client implements model.Client on top of OpenAI Chat Completions.
	Client struct {
		chat         ChatClient
		defaultModel string
		maxTok       int
		temp         float64
	}
)

// New builds an OpenAI-backed model client.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai: chat client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("openai: default model identifier is required")
	}
	return &Client{
		chat:         opts.Client,
		defaultModel: opts.DefaultModel,
		maxTok:       opts.MaxTokens,
		temp:         opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	oc := openai.NewClient(option.WithAPIKey(apiKey))
	return New(Options{Client: &oc.Chat.Completions, DefaultModel: defaultModel})
}

// Complete issues a non-streaming Chat Completions request.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat completions: %w", err)
	}
	return translateResponse(resp)
}

// Stream invokes Chat Completions with streaming enabled.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.chat.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat completions stream: %w", err)
	}
	return newOpenAIStreamer(stream), nil
}

func (c *Client) prepareRequest(req *model.Request) (*openai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	toolDefs, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: msgs,
	}
	if maxTokens := c.effectiveMaxTokens(req.MaxTokens); maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	if t := c.effectiveTemperature(req.Temperature); t > 0 {
		params.Temperature = openai.Float(t)
	}
	if len(toolDefs) > 0 {
		params.Tools = toolDefs
	}
	if req.ToolChoice != nil {
		choice, err := encodeToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		params.ToolChoice = choice
	}
	return &params, nil
}

func (c *Client) effectiveMaxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.maxTok
}

func (c *Client) effectiveTemperature(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return c.temp
}

func encodeMessages(msgs []*model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		text := partsText(m.Parts)
		switch m.Role { //nolint:exhaustive
		case model.ConversationRoleSystem:
			out = append(out, openai.SystemMessage(text))
		case model.ConversationRoleUser:
			toolResults := toolResultMessages(m.Parts)
			if text != "" || len(toolResults) == 0 {
				out = append(out, openai.UserMessage(text))
			}
			out = append(out, toolResults...)
		case model.ConversationRoleAssistant:
			assistantMsg, toolCallsPresent := assistantMessage(text, m.Parts)
			if text != "" || toolCallsPresent {
				out = append(out, assistantMsg)
			}
		default:
			return nil, fmt.Errorf("openai: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("openai: at least one message is required")
	}
	return out, nil
}

func partsText(parts []model.Part) string {
	var text string
	for _, p := range parts {
		if v, ok := p.(model.TextPart); ok {
			text += v.Text
		}
	}
	return text
}

func toolResultMessages(parts []model.Part) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, p := range parts {
		if v, ok := p.(model.ToolResultPart); ok {
			out = append(out, openai.ToolMessage(toolResultText(v), v.ToolUseID))
		}
	}
	return out
}

func toolResultText(v model.ToolResultPart) string {
	switch c := v.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	default:
		if data, err := json.Marshal(c); err == nil {
			return string(data)
		}
		return ""
	}
}

func assistantMessage(text string, parts []model.Part) (openai.ChatCompletionMessageParamUnion, bool) {
	var calls []openai.ChatCompletionMessageToolCallParam
	for _, p := range parts {
		v, ok := p.(model.ToolUsePart)
		if !ok {
			continue
		}
		args, err := json.Marshal(v.Input)
		if err != nil {
			args = []byte("{}")
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: v.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      v.Name,
				Arguments: string(args),
			},
		})
	}
	if len(calls) == 0 {
		return openai.AssistantMessage(text), false
	}
	msg := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if text != "" {
		msg.Content.OfString = openai.String(text)
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}, true
}

func encodeTools(defs []*model.ToolDefinition) ([]openai.ChatCompletionToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		params, err := toolParameters(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("openai: tool %q schema: %w", def.Name, err)
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  params,
		}))
	}
	return out, nil
}

func toolParameters(schema any) (shared.FunctionParameters, error) {
	if schema == nil {
		return shared.FunctionParameters{}, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func encodeToolChoice(choice *model.ToolChoice) (openai.ChatCompletionToolChoiceOptionUnionParam, error) {
	switch choice.Mode {
	case "", model.ToolChoiceModeAuto:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}, nil
	case model.ToolChoiceModeNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}, nil
	case model.ToolChoiceModeAny:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}, nil
	case model.ToolChoiceModeTool:
		if choice.Name == "" {
			return openai.ChatCompletionToolChoiceOptionUnionParam{}, errors.New("openai: tool choice mode requires a tool name")
		}
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: choice.Name},
			},
		}, nil
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{}, fmt.Errorf("openai: unsupported tool choice mode %q", choice.Mode)
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func translateResponse(resp *openai.ChatCompletion) (*model.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	choice := resp.Choices[0]
	out := &model.Response{StopReason: string(choice.FinishReason)}

	if choice.Message.Content != "" {
		out.Content = append(out.Content, model.Message{
			Role:  model.ConversationRoleAssistant,
			Parts: []model.Part{model.TextPart{Text: choice.Message.Content}},
		})
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			Name:    tools.Ident(tc.Function.Name),
			Payload: json.RawMessage(tc.Function.Arguments),
			ID:      tc.ID,
		})
	}
	out.Usage = model.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	return out, nil
}
