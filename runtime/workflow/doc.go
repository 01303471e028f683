// Package workflow implements the Workflow Engine abstraction: a directed
// graph of named nodes over typed state, executed on top of
// runtime/engine.Engine and checkpointed at every node boundary via
// runtime/workflow/checkpoint.Store.
//
// A Graph[S] names its nodes and their typed transition function
// (NodeFunc[S]); RegisterGraph binds it to the underlying engine as a single
// workflow definition. Start launches a new run for a (kind, session_id)
// pair; Resume continues one after a process restart by replaying its last
// checkpoint; Status reports the current node and run status without
// requiring the caller to know the state type; Cancel requests cooperative
// cancellation, observed by the running node loop the next time it checks
// between node executions.
//
// Node failures are classified via Transient/Permanent: a transient error
// retries (bounded by Node.RetryMax, default workflow_node_retry_max)
// with exponential backoff before the run is marked failed; a permanent
// error fails the run immediately. Deadline/timeout errors are treated as
// transient unless a node wraps them with Permanent.
package workflow
