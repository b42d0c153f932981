// Package safety holds the outbound-request policy and the error body tools
// surface back to the model.
package safety

import "encoding/json"

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool messages small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Error codes shared by tools and fetchers.
const (
	CodeInvalidArgs  = "ERR_INVALID_ARGS"
	CodeBadURL       = "ERR_BAD_URL"
	CodeScheme       = "ERR_URL_SCHEME"
	CodePrivateHost  = "ERR_PRIVATE_HOST"
	CodeUnresolvable = "ERR_UNRESOLVABLE_HOST"
)

// InvalidArgs builds a ToolError for malformed tool arguments.
func InvalidArgs(msg string) ToolError {
	return ToolError{Code: CodeInvalidArgs, Message: msg}
}
