// Package errors provides standardized error handling for the underwriting
// agent and for Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSubmissionNotFound         ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeSubmissionValidationFailed ErrorCode = "SUBMISSION_VALIDATION_FAILED"

	ErrCodeStorageReadFailed  ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"

	ErrCodeStageExecutionFailed    ErrorCode = "STAGE_EXECUTION_FAILED"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeSearchIndexFailed ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeWorkflowEngineUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"
	ErrCodeWorkflowCommandRejected   ErrorCode = "WORKFLOW_COMMAND_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionNotFoundError creates a non-retryable lookup error.
func NewSubmissionNotFoundError(id string) *StandardError {
	e := newError(ErrCodeSubmissionNotFound, "Submission not found", fmt.Sprintf("submissionId: %s", id), false)
	e.Metadata = map[string]interface{}{"submissionId": id}
	return e
}

// NewSubmissionValidationFailedError creates a non-retryable validation error.
func NewSubmissionValidationFailedError(details string) *StandardError {
	return newError(ErrCodeSubmissionValidationFailed, "Submission validation failed", details, false)
}

// NewStorageReadFailedError creates a retryable storage read error.
func NewStorageReadFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeStorageReadFailed, "Submission storage read failed",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), true)
}

// NewStorageWriteFailedError creates a retryable storage write error.
func NewStorageWriteFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeStorageWriteFailed, "Submission storage write failed",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), true)
}

// NewStageExecutionFailedError wraps a failure inside one pipeline stage.
func NewStageExecutionFailedError(stage string, err error) *StandardError {
	e := newError(ErrCodeStageExecutionFailed, "Pipeline stage failed",
		fmt.Sprintf("stage: %s, error: %s", stage, err.Error()), false)
	e.Metadata = map[string]interface{}{"stage": stage}
	return e
}

// NewInvalidStatusTransitionError is returned when an action is not allowed
// from the submission's current status.
func NewInvalidStatusTransitionError(from, action string) *StandardError {
	return newError(ErrCodeInvalidStatusTransition, "Action not allowed in current status",
		fmt.Sprintf("status: %s, action: %s", from, action), false)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification send failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// NewSearchIndexFailedError creates a retryable indexing error.
func NewSearchIndexFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search indexing failed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewWorkflowEngineUnavailableError is returned when the Zeebe gateway
// cannot be reached or times out.
func NewWorkflowEngineUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowEngineUnavailable, "Workflow engine unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

// NewWorkflowCommandRejectedError is returned when Zeebe refuses a command.
func NewWorkflowCommandRejectedError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowCommandRejected, "Workflow command rejected",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), false)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageReadFailed,
		ErrCodeStorageWriteFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeWorkflowEngineUnavailable:
		return 3
	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN error codes are identical to the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// Normalize returns err as a StandardError, wrapping unknown errors as internal.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "STAGE"):
		return "PIPELINE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "TRANSITION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	default:
		return "OTHER"
	}
}
