package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
)

// structuredOutputTool is the synthetic tool name Structured forces the
// model to call so its JSON arguments can be decoded against schema. It is
// never registered in the Tool Registry; it exists only for this one
// request/response round trip.
const structuredOutputTool = "emit_structured_output"

// Structured implements the structured-output capability the clinical
// decision chains depend on: given a prompt and a JSON Schema, it returns the
// arguments of the forced tool call as the provider sent them; it does not
// validate them against schema itself. It forces the call via
// ToolChoiceModeTool rather than parsing free text, since providers honor a
// forced tool's input schema far more reliably than a textual instruction
// to "reply with JSON".
//
// When the call fails or the response carries no emit_structured_output tool
// call, Structured retries once with a stricter prompt before giving up.
func (r *Router) Structured(ctx context.Context, prompt string, schema any) (json.RawMessage, error) {
	req := &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: prompt}}},
		},
		Tools: []*model.ToolDefinition{
			{Name: structuredOutputTool, Description: "Emit the final structured result.", InputSchema: schema},
		},
		ToolChoice: &model.ToolChoice{Mode: model.ToolChoiceModeTool, Name: structuredOutputTool},
	}

	out, err := r.callStructured(ctx, req)
	if err == nil {
		return out, nil
	}

	strict := &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: prompt}}},
			{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{
				Text: "Your previous response did not conform to the required schema. Call " +
					structuredOutputTool + " again with arguments that strictly satisfy it.",
			}}},
		},
		Tools:      req.Tools,
		ToolChoice: req.ToolChoice,
	}
	out, err = r.callStructured(ctx, strict)
	if err != nil {
		return nil, fmt.Errorf("llm: structured output failed after retry: %w", err)
	}
	return out, nil
}

func (r *Router) callStructured(ctx context.Context, req *model.Request) (json.RawMessage, error) {
	resp, err := r.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, call := range resp.ToolCalls {
		if call.Name == structuredOutputTool {
			return call.Payload, nil
		}
	}
	return nil, fmt.Errorf("llm: provider did not call %s", structuredOutputTool)
}
