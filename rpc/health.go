package rpc

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string `json:"status"`
	ToolCount int    `json:"tool_count"`
	AgentCount int   `json:"agent_count"`
}

// Health implements GET /health (spec.md §6: "{ status, agent_count,
// tool_count }"). agent_count is derived from the distinct owning_agent
// values across the registered tools, since the RPC Boundary holds no
// separate agent registry of its own (spec.md §4.7: it only talks to the
// Tool Registry and the Orchestrator).
func (s *Server) Health(c *gin.Context) {
	descs := s.registry.List()
	agents := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		agents[d.OwningAgent] = struct{}{}
	}
	writeJSON(c, http.StatusOK, healthResponse{
		Status:     "ok",
		ToolCount:  len(descs),
		AgentCount: len(agents),
	})
}
