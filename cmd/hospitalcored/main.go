// Command hospitalcored is the hospital operations platform's service
// binary (SPEC_FULL.md §2.1): it wires repositories, the Domain Agents, the
// Bed Lifecycle Manager's background sweep, the Discharge Aggregator, the
// Workflow Engine and its compiled graphs, the LLM Router, and the
// Orchestrator behind the RPC Boundary's gin HTTP server. Grounded on the
// pack's own flat, top-to-bottom service bootstrap
// (codeready-toolchain-tarsy's cmd/tarsy/main.go) rather than the teacher's
// own code-generator entry points, since hospitalcored is a long-running
// service and tarsy's cmd is the pack's only example of one.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careflow-systems/hospital-core/agents"
	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/config"
	"github.com/careflow-systems/hospital-core/orchestrator"
	"github.com/careflow-systems/hospital-core/rpc"
	"github.com/careflow-systems/hospital-core/runtime/agent/telemetry"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("HOSPITALCORE_ENV_FILE"))
	if err != nil {
		log.Fatalf("hospitalcored: load configuration: %v", err)
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	repos, closeRepos, err := buildRepositories(ctx, cfg)
	if err != nil {
		log.Fatalf("hospitalcored: build repositories: %v", err)
	}
	defer func() {
		if err := closeRepos(); err != nil {
			log.Printf("hospitalcored: close repositories: %v", err)
		}
	}()

	bedMgr := bedlifecycle.New(repos.beds, repos.patients)
	bedMgr.StartSweep(ctx, time.Duration(cfg.BedSweepIntervalSeconds)*time.Second)

	dischargeAgg := buildDischargeAggregator(repos, bedMgr)

	router, err := buildLLMRouter(cfg)
	if err != nil {
		log.Fatalf("hospitalcored: build LLM router: %v", err)
	}

	embedder, knowledge, err := buildEmbeddingAndKnowledge(ctx, cfg)
	if err != nil {
		log.Fatalf("hospitalcored: build embedding/knowledge store: %v", err)
	}
	var clinical *agents.ClinicalAgent
	if embedder != nil && knowledge != nil {
		clinical = agents.NewClinicalAgent(repos.patients, router, embedder, knowledge)
	}

	traces := buildTraceBuffer()
	reg := toolregistry.New(toolregistry.WithTraceObserver(traces), toolregistry.WithLogger(logger))
	if err := registerAgents(ctx, reg, repos, bedMgr, dischargeAgg, clinical, traces); err != nil {
		log.Fatalf("hospitalcored: register domain agents: %v", err)
	}

	eng, closeEngine, err := buildEngine(cfg, logger, metrics)
	if err != nil {
		log.Fatalf("hospitalcored: build workflow engine backend: %v", err)
	}
	defer func() {
		if err := closeEngine(); err != nil {
			log.Printf("hospitalcored: close workflow engine: %v", err)
		}
	}()

	we, err := buildWorkflowEngine(ctx, eng, reg, cfg)
	if err != nil {
		log.Fatalf("hospitalcored: build compiled workflow graphs: %v", err)
	}
	toolCallTimeout := time.Duration(cfg.ToolCallTimeoutMS) * time.Millisecond
	if err := orchestrator.NewWorkflowTools(we, toolCallTimeout).Register(reg); err != nil {
		log.Fatalf("hospitalcored: register workflow-coupled tools: %v", err)
	}

	sessions := buildSessionStore(cfg)
	orch := buildOrchestrator(reg, router, sessions, bedMgr, cfg, logger, metrics)

	srv := rpc.New(reg, orch, rpc.Options{ToolCallTimeout: toolCallTimeout, Logger: logger})
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.NewEngine()}

	go func() {
		log.Printf("hospitalcored: listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("hospitalcored: serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("hospitalcored: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("hospitalcored: shutdown: %v", err)
	}
}
