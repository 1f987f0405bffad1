package verrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	err := New(IO, "file not found: test.txt", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     Code
		message  string
		expected string
	}{
		{
			name:     "invalid argument",
			code:     InvalidArgument,
			message:  "k must be positive",
			expected: "[INVALID_ARGUMENT] k must be positive",
		},
		{
			name:     "document not found",
			code:     DocumentNotFound,
			message:  "document xyz not found",
			expected: "[DOCUMENT_NOT_FOUND] document xyz not found",
		},
		{
			name:     "io error",
			code:     IO,
			message:  "failed to read file",
			expected: "[IO] failed to read file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err1 := New(DocumentNotFound, "doc A not found", nil)
	err2 := New(DocumentNotFound, "doc B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(DocumentNotFound, "doc not found", nil)
	err2 := New(InvalidArgument, "bad argument", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestError_WithDetail_AddsContext(t *testing.T) {
	err := New(DocumentNotFound, "document not found", nil)

	err = err.WithDetail("id", "abc123")
	err = err.WithDetail("collection", "default")

	assert.Equal(t, "abc123", err.Details["id"])
	assert.Equal(t, "default", err.Details["collection"])
}

func TestSeverityFromCode(t *testing.T) {
	tests := []struct {
		code         Code
		wantSeverity Severity
	}{
		{NotInitialized, SeverityFatal},
		{DimensionMismatch, SeverityFatal},
		{BackendUnavailable, SeverityWarning},
		{IO, SeverityWarning},
		{Cancelled, SeverityWarning},
		{DocumentNotFound, SeverityError},
		{InvalidArgument, SeverityError},
		{Internal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestRetryableFromCode(t *testing.T) {
	tests := []struct {
		code          Code
		wantRetryable bool
	}{
		{BackendUnavailable, true},
		{IO, true},
		{Cancelled, true},
		{DocumentNotFound, false},
		{InvalidArgument, false},
		{NotInitialized, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	wrapped := Wrap(Internal, originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, Internal, wrapped.Code)
	assert.Equal(t, "something went wrong", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(Internal, nil))
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable error",
			err:      New(BackendUnavailable, "unavailable", nil),
			expected: true,
		},
		{
			name:     "non-retryable error",
			err:      New(DocumentNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(IO, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "not initialized is fatal",
			err:      New(NotInitialized, "call Initialize first", nil),
			expected: true,
		},
		{
			name:     "dimension mismatch is fatal",
			err:      New(DimensionMismatch, "expected 768 got 384", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(DocumentNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	err := New(Embedding, "embedder timed out", nil)
	assert.Equal(t, Embedding, GetCode(err))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
}

func TestIs_MatchesOutermostErrorCode(t *testing.T) {
	inner := New(IO, "read failed", nil)
	outer := Wrap(Internal, inner)

	assert.True(t, Is(outer, Internal))
}
