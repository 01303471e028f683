// Package rpc implements the RPC Boundary (spec.md §4.7, §6): a thin,
// stateless HTTP surface over the Tool Registry and the Orchestrator.
// Payload validation happens in the Tool Registry itself; this package only
// translates HTTP <-> the registry's and orchestrator's native Go types.
// Grounded on the pack's own gin-based HTTP service
// (codeready-toolchain-tarsy's pkg/api), which wraps a plain struct holding
// its collaborators in gin.HandlerFunc methods rather than reaching for
// generated transport code (SPEC_FULL.md §6.1).
package rpc

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careflow-systems/hospital-core/orchestrator"
	"github.com/careflow-systems/hospital-core/runtime/agent/telemetry"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// Server is the RPC Boundary. It holds no session or workflow state of its
// own: session continuity is carried by callers passing session_id in tool
// arguments or chat requests (spec.md §4.7).
type Server struct {
	registry     *toolregistry.Registry
	orchestrator *orchestrator.Orchestrator
	logger       telemetry.Logger

	toolCallTimeout time.Duration
}

// Options configures a Server. Zero values fall back to spec.md §5 defaults.
type Options struct {
	ToolCallTimeout time.Duration
	Logger          telemetry.Logger
}

// DefaultToolCallTimeout bounds a single POST /tools/call request
// (spec.md §5 "tool_call_timeout_ms", default 30s).
const DefaultToolCallTimeout = 30 * time.Second

// New constructs a Server. orch may be nil, in which case POST /chat is not
// mounted — useful for deployments that only need direct tool access.
func New(registry *toolregistry.Registry, orch *orchestrator.Orchestrator, opts Options) *Server {
	s := &Server{
		registry:        registry,
		orchestrator:    orch,
		logger:          opts.Logger,
		toolCallTimeout: opts.ToolCallTimeout,
	}
	if s.logger == nil {
		s.logger = telemetry.NoopLogger{}
	}
	if s.toolCallTimeout <= 0 {
		s.toolCallTimeout = DefaultToolCallTimeout
	}
	return s
}

// Mount registers the RPC Boundary's routes on router: the three endpoints
// named in spec.md §6 (GET /tools/list, POST /tools/call, GET /health) plus
// two pragmatic additions that SPEC_FULL.md §4.0/§6.1 carry regardless of
// what spec.md's External Interfaces section enumerates — GET /metrics for
// the Prometheus-backed Metrics implementation, and POST /chat as the only
// way to actually reach the Orchestrator's chat-turn loop over HTTP (without
// it, spec.md §4.6's "single entry point" component would have no external
// caller at all).
func (s *Server) Mount(router gin.IRouter) {
	router.GET("/tools/list", s.ListTools)
	router.POST("/tools/call", s.CallTool)
	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.orchestrator != nil {
		router.POST("/chat", s.Chat)
	}
}

// NewEngine builds a gin.Engine with the Server's routes mounted, using
// gin.Default() (logger + recovery middleware) as the teacher's own
// cmd/tarsy/main.go does.
func (s *Server) NewEngine() *gin.Engine {
	router := gin.Default()
	s.Mount(router)
	return router
}

func writeJSON(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	writeJSON(c, http.StatusBadRequest, gin.H{"error": msg})
}
