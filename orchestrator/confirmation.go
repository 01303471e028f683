package orchestrator

// confirmation.go gates dispatch of confirmation-gated tools (SPEC_FULL.md
// §10, tools.ConfirmationSpec) above the Tool Registry call boundary, per
// toolregistry.Descriptor.Confirmation's own doc comment: "the registry
// itself does not enforce this gate — confirmation happens above the call
// boundary, in the chat loop, since only the Orchestrator has a channel back
// to the end user." Grounded on the teacher's
// runtime/agent/runtime/confirmation_workflow.go template-rendering
// approach, simplified from a stateful pause/resume await boundary (the
// teacher's workflow engine can suspend a run indefinitely waiting on an
// operator signal) down to a single-round-trip convention: a confirmation-
// gated call that does not carry `"confirmed": true` in its arguments is
// never dispatched to its handler; instead the turn hands the model a
// rendered prompt to relay to the user, and the model is expected to re-issue
// the same call with `confirmed: true` once the user agrees.
import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// confirmationPending is the structured content handed back to the model in
// place of a tool result when a confirmation-gated call has not yet been
// confirmed.
type confirmationPending struct {
	ConfirmationRequired bool   `json:"confirmation_required"`
	Title                string `json:"title"`
	Prompt               string `json:"prompt"`
}

// needsConfirmation reports whether desc requires confirmation for this call
// and args do not already carry it, returning the rendered prompt content to
// return to the model when so.
func needsConfirmation(desc toolregistry.Descriptor, args json.RawMessage) (any, bool) {
	if desc.Confirmation == nil || alreadyConfirmed(args) {
		return nil, false
	}
	return confirmationPending{
		ConfirmationRequired: true,
		Title:                desc.Confirmation.Title,
		Prompt:               renderConfirmationPrompt(desc.Confirmation, args),
	}, true
}

func alreadyConfirmed(args json.RawMessage) bool {
	var decoded struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := json.Unmarshal(args, &decoded); err != nil {
		return false
	}
	return decoded.Confirmed
}

// renderConfirmationPrompt renders spec.PromptTemplate against the decoded
// tool arguments, falling back to the bare title if the template fails to
// parse or execute (a malformed template should never block the caller from
// learning that confirmation is required).
func renderConfirmationPrompt(spec *tools.ConfirmationSpec, args json.RawMessage) string {
	var data map[string]any
	if err := json.Unmarshal(args, &data); err != nil {
		data = map[string]any{}
	}
	tmpl, err := template.New("confirmation").Parse(spec.PromptTemplate)
	if err != nil {
		return spec.Title
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return spec.Title
	}
	return buf.String()
}
