package tools

// FieldIssue represents a single JSON-schema validation issue for a tool
// payload. Constraint values classify jsonschema/v6 error kinds:
// missing_field, invalid_enum_value, invalid_format, invalid_pattern,
// invalid_range, invalid_length, invalid_field_type, plus invalid_json when
// the payload does not parse as JSON at all. The Tool Registry
// (runtime/toolregistry) produces these from a failed schema validation and
// returns them alongside the invalid_arguments error kind.
type FieldIssue struct {
	Field      string
	Constraint string
	// Optional extras for richer retry hints; not all are populated.
	Allowed []string
	MinLen  *int
	MaxLen  *int
	Pattern string
	Format  string
}
