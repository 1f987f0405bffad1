package mcptool

import (
	"context"
	"errors"
	"fmt"

	"github.com/veyra-dev/veyra/internal/verrors"
)

// Custom MCP error codes for veyra.
const (
	// ErrCodeDocumentNotFound indicates a fragment or source does not exist.
	ErrCodeDocumentNotFound = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout = -32003

	// ErrCodeBackendUnavailable indicates the storage backend could not be reached.
	ErrCodeBackendUnavailable = -32004

	// ErrCodeInvalidCursor indicates a pagination cursor could not be decoded.
	ErrCodeInvalidCursor = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error into an MCPError, never exposing
// storage-specific error messages to the caller.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "request was cancelled"}
	}

	var verr *verrors.Error
	if !errors.As(err, &verr) {
		return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
	}

	switch verr.Code {
	case verrors.DocumentNotFound:
		return &MCPError{Code: ErrCodeDocumentNotFound, Message: "document not found"}
	case verrors.InvalidArgument:
		return &MCPError{Code: ErrCodeInvalidParams, Message: verr.Message}
	case verrors.InvalidCursor:
		return &MCPError{Code: ErrCodeInvalidCursor, Message: "pagination cursor is invalid or expired"}
	case verrors.DimensionMismatch:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: "embedding dimension mismatch, reindex required"}
	case verrors.Embedding:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: "embedding generation failed"}
	case verrors.NotInitialized, verrors.BackendUnavailable:
		return &MCPError{Code: ErrCodeBackendUnavailable, Message: "storage backend unavailable"}
	case verrors.Cancelled:
		return &MCPError{Code: ErrCodeTimeout, Message: "request was cancelled"}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool '%s' not found", name)}
}
