package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeNodeTypeNotFound     = "NODE_TYPE_NOT_FOUND"
	ErrCodeOutputNotFound       = "OUTPUT_NOT_FOUND"
	ErrCodeFieldNotFound        = "FIELD_NOT_FOUND"
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeEmptyExpression      = "EMPTY_EXPRESSION"
	ErrCodeNullResult           = "NULL_EXPRESSION_RESULT"
	ErrCodeTypeMismatch         = "TYPE_MISMATCH"
	ErrCodeInvalidClassRef      = "INVALID_CLASS_REFERENCE"
	ErrCodeStepLimitExceeded    = "STEP_LIMIT_EXCEEDED"
	ErrCodeNodeNotFound         = "NODE_NOT_FOUND"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeExecution            = "EXECUTION_ERROR"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeStore                = "STORE_ERROR"
)

// WorkflowError is the structured error type for all engine operations.
// Load-time errors carry the node id and field/output name in Details so
// callers can fix the persisted graph.
type WorkflowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *WorkflowError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new WorkflowError.
func NewError(code, message string) *WorkflowError {
	return &WorkflowError{Code: code, Message: message}
}

// NewErrorf creates a new WorkflowError with a formatted message.
func NewErrorf(code, format string, args ...any) *WorkflowError {
	return &WorkflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *WorkflowError) WithNode(nodeID string) *WorkflowError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *WorkflowError) WithCause(err error) *WorkflowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *WorkflowError) WithDetails(details map[string]any) *WorkflowError {
	e.Details = details
	return e
}
