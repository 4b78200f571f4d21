package agent

import "fmt"

// SchemaValidationError reports tool arguments that do not match the tool's
// schema. Field is the offending argument path, e.g. "items[2]".
type SchemaValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for %s: %s: %s", e.Tool, e.Field, e.Reason)
}

// ExecutionError reports a tool executor failure. The message is shown to
// the model; Err keeps the cause for logging.
type ExecutionError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Tool, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// UnknownToolError is returned when a tool name is not registered. During a
// run it means the model asked for a tool it was never offered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %q", e.Name)
}

// UpstreamError wraps a completion API failure or malformed reply.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion api: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
