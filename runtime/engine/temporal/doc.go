// Package temporal implements a workflow engine adapter backed by Temporal
// (https://temporal.io). It satisfies the generic engine.Engine interface,
// letting the workflow graphs in runtime/workflow run as durable, replay-safe
// Temporal workflows without the graph code importing the Temporal SDK
// directly.
//
// # Why Temporal
//
// SPEC_FULL.md §4.8 requires WorkflowRunState to survive a process restart
// for the admission, clinical-decision, and document-processing graphs
// (spec.md §4.4): a crash mid-graph must resume from its last completed
// step, not restart from scratch. Temporal gives us that for free via event
// sourcing and workflow replay; runtime/engine/inmem does not durable this
// and is selected only for local development (WORKFLOW_ENGINE=inmem).
//
// # Constructing an Engine
//
// New takes Options naming a Temporal client (or ClientOptions to dial one
// lazily) and, for worker-mode deployments, one WorkerOptions entry per task
// queue the binary should poll. A client-only Engine can still
// StartWorkflow and Signal but never executes workflow/activity code itself.
//
// # Worker vs. client mode
//
// hospitalcored runs both roles in one process: it registers every
// workflow/activity definition and starts pollers for its task queues, then
// serves RPC Boundary requests that call StartWorkflow on the same Engine.
// A deployment that wants to split these roles can construct two Engines
// against the same namespace: one with WorkerOptions for execution, one
// client-only for submission.
//
// # Workflow determinism
//
// Workflow handlers run inside the Temporal workflow sandbox: they must
// reach all nondeterministic state (time, randomness, I/O) through the
// WorkflowContext the engine hands them (Now, ExecuteActivity,
// SignalChannel) rather than calling time.Now, the filesystem, or a network
// client directly. runtime/workflow's graph executor follows this
// discipline so the graphs it compiles are replay-safe automatically.
//
// # OpenTelemetry integration
//
// InstrumentationOptions wires the go.temporal.io/sdk/contrib/opentelemetry
// interceptor into both client and worker, so workflow and activity spans
// join the same trace as the RPC Boundary request that started them.
package temporal
