// Package session defines ConversationSession: the Orchestrator's
// per-end-user chat memory (spec.md §3, §4.6). A session accumulates an
// append-only ordered transcript of model.Message values plus one
// WorkflowStateRef per workflow kind currently in flight for that user.
//
// Ownership is exclusive (spec.md §3 row "Ownership"): only the Orchestrator
// appends to Messages or updates WorkflowStates. Mutation is guarded by a
// lock that the Store implementation holds only for the in-memory update
// itself — callers must never perform I/O while that lock would be held. The
// inmem Store uses a single lock for all of its sessions, not one lock per
// session, so updates to different sessions are serialized too.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
)

type (
	// WorkflowStateRef tracks the most recently started workflow run of a
	// given kind for a session, so the Orchestrator can resume polling a
	// paused admission/clinical-decision/document-processing run instead of
	// starting a duplicate (spec.md §4.4, §4.6).
	WorkflowStateRef struct {
		// RunID identifies the workflow run in the Workflow Engine/checkpoint
		// store.
		RunID string
		// Status mirrors the last known workflow.Status observed for RunID.
		// Stored as a plain string (rather than importing runtime/workflow) to
		// keep this package free of a dependency cycle: workflow definitions
		// may eventually want to read session state, never the reverse.
		Status string
		// UpdatedAt records when this ref was last refreshed.
		UpdatedAt time.Time
	}

	// ConversationSession is the durable unit of chat memory for one end
	// user (spec.md §3). Messages is append-only within a session; a session
	// is created on first user message and may be evicted by LRU
	// (spec.md §9 Open Question 3: ConversationSession itself need not
	// survive a process restart).
	ConversationSession struct {
		// ID is the caller-provided, stable session identifier.
		ID string
		// UserID identifies the end user, when known. Anonymous/unauthenticated
		// sessions are permitted (spec.md §3 "nullable").
		UserID *string
		// Messages is the ordered transcript. Only Orchestrator.HandleMessage
		// appends to it.
		Messages []model.Message
		// WorkflowStates tracks in-flight workflow runs keyed by workflow kind
		// ("admission", "clinical_decision", "document_processing").
		WorkflowStates map[string]WorkflowStateRef
		// CreatedAt records when the session was first created.
		CreatedAt time.Time
		// UpdatedAt records the last mutation to this session.
		UpdatedAt time.Time
	}

	// Store persists ConversationSession state. The canonical implementation
	// (inmem) is an LRU-bounded in-memory map: conversation memory is not
	// required to survive a process restart (spec.md §9), unlike
	// WorkflowRunState and DischargeReport.
	Store interface {
		// GetOrCreate returns the existing session for id, or creates a new
		// empty one. Creating or touching a session may evict the
		// least-recently-used session once the store is at capacity.
		GetOrCreate(ctx context.Context, id string, userID *string, now time.Time) (ConversationSession, error)
		// Get returns the session for id without creating one.
		Get(ctx context.Context, id string) (ConversationSession, bool, error)
		// AppendMessage appends msg to the session's transcript.
		AppendMessage(ctx context.Context, id string, msg model.Message, now time.Time) (ConversationSession, error)
		// SetWorkflowState records the current WorkflowStateRef for a workflow
		// kind within a session.
		SetWorkflowState(ctx context.Context, id, workflowKind string, ref WorkflowStateRef, now time.Time) (ConversationSession, error)
	}
)

// ErrSessionNotFound is returned by AppendMessage and SetWorkflowState for a
// session id that was never created (or has since been evicted by LRU). Get
// reports a missing session with found=false and a nil error instead.
var ErrSessionNotFound = errors.New("session: not found")
