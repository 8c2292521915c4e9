package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"storage write is retried", NewStorageWriteFailedError("redis", stderrors.New("conn reset")), 3},
		{"stage failure is not retried", NewStageExecutionFailedError("risk", stderrors.New("boom")), 0},
		{"not found is not retried", NewSubmissionNotFoundError("abc"), 0},
		{"search index is retried", NewSearchIndexFailedError("submissions", stderrors.New("timeout")), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, bpmn.Code, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestHasCode_WrappedErrors(t *testing.T) {
	base := NewInvalidStatusTransitionError("quoted", "run")
	wrapped := fmt.Errorf("run pipeline: %w", base)

	assert.True(t, HasCode(wrapped, ErrCodeInvalidStatusTransition))
	assert.False(t, HasCode(wrapped, ErrCodeSubmissionNotFound))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeInternal))

	got, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, Normalize(stderrors.New("x")).Code)
	assert.Equal(t, ErrCodeSubmissionNotFound, Normalize(NewSubmissionNotFoundError("1")).Code)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeStorageReadFailed))
	assert.Equal(t, "PIPELINE", GetErrorCategory(ErrCodeStageExecutionFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidStatusTransition))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeSubmissionValidationFailed))
	assert.Equal(t, "NOT_FOUND", GetErrorCategory(ErrCodeSubmissionNotFound))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchQueryFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestStandardError_Message(t *testing.T) {
	err := NewSubmissionNotFoundError("sub-1")
	assert.Contains(t, err.Error(), "SUBMISSION_NOT_FOUND")
	assert.Contains(t, err.Error(), "sub-1")
	assert.False(t, IsRetryableErrorCode(err.Code))
	assert.True(t, IsRetryableErrorCode(ErrCodeStorageReadFailed))
}

func TestWorkflowErrors(t *testing.T) {
	unavailable := NewWorkflowEngineUnavailableError("complete-job", stderrors.New("connection refused"))
	assert.True(t, unavailable.Retryable)
	assert.Equal(t, 3, ConvertToBPMNError(unavailable).Retries)
	assert.Equal(t, "WORKFLOW", GetErrorCategory(unavailable.Code))

	rejected := NewWorkflowCommandRejectedError("complete-job", stderrors.New("not found"))
	assert.False(t, rejected.Retryable)
	assert.Equal(t, 0, ConvertToBPMNError(rejected).Retries)
}
