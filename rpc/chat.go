package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careflow-systems/hospital-core/orchestrator"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
)

// chatRequest is the body of POST /chat (SPEC_FULL.md §6.1): the only way
// to actually reach the Orchestrator's chat-turn loop over HTTP.
type chatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
}

type chatToolCall struct {
	Name         string          `json:"name"`
	Arguments    json.RawMessage `json:"arguments"`
	OK           bool            `json:"ok"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type chatResponse struct {
	SessionID     string         `json:"session_id"`
	AssistantText string         `json:"assistant_text,omitempty"`
	ToolCalls     []chatToolCall `json:"tool_calls,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// Chat implements POST /chat, driving one full turn of the Orchestrator's
// chat loop (spec.md §4.6) and returning its outcome in the same shape as
// ChatTurnResult, translated to wire-friendly JSON field names.
func (s *Server) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		badRequest(c, "session_id is required")
		return
	}
	if req.Message == "" {
		badRequest(c, "message is required")
		return
	}

	var userID *string
	if req.UserID != "" {
		userID = &req.UserID
	}

	result, err := s.orchestrator.HandleMessage(c.Request.Context(), req.SessionID, userID, req.Message)
	if err != nil {
		writeJSON(c, http.StatusOK, orchestratorErrorResponse(req.SessionID, err))
		return
	}
	writeJSON(c, http.StatusOK, toChatResponse(result))
}

func toChatResponse(result orchestrator.ChatTurnResult) chatResponse {
	calls := make([]chatToolCall, 0, len(result.ToolCalls))
	for _, tc := range result.ToolCalls {
		calls = append(calls, chatToolCall{
			Name:         tc.Name.String(),
			Arguments:    tc.Arguments,
			OK:           tc.OK,
			ErrorKind:    string(tc.ErrorKind),
			ErrorMessage: tc.ErrorMsg,
		})
	}
	return chatResponse{SessionID: result.SessionID, AssistantText: result.AssistantText, ToolCalls: calls}
}

// orchestratorErrorResponse reports a turn-level failure (max tool rounds,
// LLM completion error, session store error) as a chat response carrying an
// error_kind from the §7 taxonomy rather than an HTTP error status, since
// the caller already knows the session_id and a turn failure is a normal,
// expected outcome spec.md §5 names explicitly (max_tool_rounds_reached).
func orchestratorErrorResponse(sessionID string, err error) chatResponse {
	te := toolerrors.FromError(err)
	return chatResponse{SessionID: sessionID, ErrorKind: string(te.EffectiveKind()), ErrorMessage: te.Error()}
}
