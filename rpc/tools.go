package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/gin-gonic/gin"

	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
)

// toolDescriptor is the JSON shape of one entry in GET /tools/list
// (spec.md §6: "{ name, description, input_schema, output_schema }").
type toolDescriptor struct {
	Name          string          `json:"name"`
	OwningAgent   string          `json:"owning_agent"`
	Description   string          `json:"description"`
	InputSchema   json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema  json.RawMessage `json:"output_schema,omitempty"`
	SideEffecting bool            `json:"side_effecting"`
	Idempotent    bool            `json:"idempotent"`
}

// ListTools implements GET /tools/list (spec.md §6).
func (s *Server) ListTools(c *gin.Context) {
	descs := s.registry.List()
	out := make([]toolDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, toolDescriptor{
			Name:          d.Name.String(),
			OwningAgent:   d.OwningAgent,
			Description:   d.Description,
			InputSchema:   d.InputSchema,
			OutputSchema:  d.OutputSchema,
			SideEffecting: d.SideEffecting,
			Idempotent:    d.Idempotent,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"tools": out})
}

// toolCallRequest is the body of POST /tools/call (spec.md §6: "{ name,
// arguments }").
type toolCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// toolCallResponse is the uniform tool envelope (spec.md §4.1, §6), with
// trace_id attached by the RPC Boundary since the Tool Registry itself is
// transport-agnostic.
type toolCallResponse struct {
	Success      bool              `json:"success"`
	Data         any               `json:"data,omitempty"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Issues       []tools.FieldIssue `json:"issues,omitempty"`
	TraceID      string            `json:"trace_id"`
}

// CallTool implements POST /tools/call (spec.md §6, §4.1 uniform envelope).
func (s *Server) CallTool(c *gin.Context) {
	var req toolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		badRequest(c, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.toolCallTimeout)
	defer cancel()

	traceID := uuid.NewString()
	result := s.registry.Call(ctx, tools.Ident(req.Name), req.Arguments)

	resp := toolCallResponse{
		Success: result.OK,
		TraceID: traceID,
	}
	if result.OK {
		resp.Data = result.Data
	} else {
		resp.ErrorKind = string(result.ErrorKind)
		resp.ErrorMessage = result.ErrorMsg
		resp.Issues = result.Issues
	}
	writeJSON(c, http.StatusOK, resp)
}
