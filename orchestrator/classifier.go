package orchestrator

import "strings"

// complexRequestHints maps a deterministic keyword match to the prompt hint
// appended as a system message after the user's message (spec.md §4.6 "complex-request
// routing"). Matching never forces a specific tool choice — it only nudges
// the model toward the kind of multi-step answer the request is asking for;
// the model remains free to call whatever tools it judges necessary.
var complexRequestHints = []struct {
	label    string
	keywords []string
	hint     string
}{
	{
		label:    "analytics",
		keywords: []string{"analytics", "trend", "statistics", "breakdown"},
		hint:     "This request asks for analytical aggregation across records. Consider which list_* tools can supply the underlying data before summarizing.",
	},
	{
		label:    "dashboard",
		keywords: []string{"dashboard", "overview", "at a glance", "summary of all"},
		hint:     "This request asks for a cross-cutting operational overview. Consider gathering bed, staff, and equipment status before responding.",
	},
	{
		label:    "forecast",
		keywords: []string{"forecast", "predict", "projected", "how many beds will"},
		hint:     "This request asks for a forward-looking projection. State clearly that any projection is an estimate derived from current data, not a guarantee.",
	},
	{
		label:    "translation",
		keywords: []string{"translate", "in spanish", "in french", "in mandarin"},
		hint:     "This request asks for a translated response. Answer the underlying question first, then translate the final text.",
	},
	{
		label:    "equipment_lifecycle",
		keywords: []string{"equipment lifecycle", "maintenance schedule", "equipment usage history"},
		hint:     "This request concerns equipment status over time. Consider equipment.list_equipment and equipment usage tools before responding.",
	},
	{
		label:    "real_time_monitoring",
		keywords: []string{"real-time", "real time", "live status", "currently happening"},
		hint:     "This request asks for a point-in-time snapshot. Fetch current state directly rather than relying on anything said earlier in the conversation.",
	},
}

// classifyComplexRequest scans text for a deterministic keyword match and
// returns the prompt hint to inject, if any (spec.md §4.6). Matching is
// case-insensitive and returns the first matching category in table order.
func classifyComplexRequest(text string) (hint string, matched bool) {
	lower := strings.ToLower(text)
	for _, c := range complexRequestHints {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.hint, true
			}
		}
	}
	return "", false
}
