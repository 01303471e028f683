// Package llm defines the narrow chat capability shared by provider
// adapters (anthropicllm, openaillm, bedrockllm) and a Router that tries
// them in configured order, per SPEC_FULL.md §4.8.
package llm

import (
	"context"
	"errors"
	"fmt"

	"goa.design/clue/log"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
)

// ErrAllProvidersExhausted is returned when every provider in a Router's
// chain has failed for a given request.
var ErrAllProvidersExhausted = errors.New("llm: all providers exhausted")

// FailureClass categorizes a Router failure for callers that need to decide
// whether a retry is worthwhile.
type FailureClass string

// FailureClassTransientUpstream is the only classification a Router
// currently produces: every provider in the chain failed, and the caller
// should treat the chain as momentarily unavailable rather than reject the
// request outright.
const FailureClassTransientUpstream FailureClass = "transient_upstream"

// RouterError wraps an exhausted-provider failure with its classification
// and the per-provider errors that led to it.
type RouterError struct {
	Class    FailureClass
	Attempts map[string]error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("llm: %s (%d provider(s) attempted)", e.Class, len(e.Attempts))
}

func (e *RouterError) Unwrap() error { return ErrAllProvidersExhausted }

// namedClient pairs a provider name with its model.Client for diagnostics
// and ordering.
type namedClient struct {
	name   string
	client model.Client
}

// Router tries a chain of model.Client providers in order, falling through
// to the next provider when one fails. The first configured provider is
// treated as primary; the rest are fallbacks.
type Router struct {
	providers []namedClient
}

// NewRouter builds a Router over the given providers in the order supplied.
// At least one provider is required.
func NewRouter(providers map[string]model.Client, order []string) (*Router, error) {
	if len(order) == 0 {
		return nil, errors.New("llm: router requires at least one provider in order")
	}
	r := &Router{providers: make([]namedClient, 0, len(order))}
	for _, name := range order {
		client, ok := providers[name]
		if !ok || client == nil {
			return nil, fmt.Errorf("llm: provider %q not configured", name)
		}
		r.providers = append(r.providers, namedClient{name: name, client: client})
	}
	return r, nil
}

// Complete tries each provider in order, returning the first success. All
// attempted errors are retained and surfaced via RouterError when every
// provider fails.
func (r *Router) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	attempts := make(map[string]error)
	for _, p := range r.providers {
		resp, err := p.client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		attempts[p.name] = err
		log.Info(ctx, log.KV{K: "msg", V: "llm provider failed, trying next"}, log.KV{K: "provider", V: p.name}, log.KV{K: "error", V: err.Error()})
	}
	return nil, &RouterError{Class: FailureClassTransientUpstream, Attempts: attempts}
}

// Stream tries each provider in order, returning the first provider's
// streamer that starts successfully. Once a streamer has been returned, its
// own mid-stream failures are not retried against the remaining providers —
// callers resume by calling Stream again.
func (r *Router) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	attempts := make(map[string]error)
	for _, p := range r.providers {
		stream, err := p.client.Stream(ctx, req)
		if err == nil {
			return stream, nil
		}
		attempts[p.name] = err
		log.Info(ctx, log.KV{K: "msg", V: "llm provider stream failed, trying next"}, log.KV{K: "provider", V: p.name}, log.KV{K: "error", V: err.Error()})
	}
	return nil, &RouterError{Class: FailureClassTransientUpstream, Attempts: attempts}
}
