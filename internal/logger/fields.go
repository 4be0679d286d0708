package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldProjectID is the translation project ID
	FieldProjectID = "project_id"

	// FieldBatch is the batch index within a translation job
	FieldBatch = "batch"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldTemplate is the prompt template name in use
	FieldTemplate = "template"
)

// Standard metric fields, attached at the log call site for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
