package verrors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(DocumentNotFound, "document 'abc123' not found", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "document 'abc123' not found")
	assert.Contains(t, result, "[DOCUMENT_NOT_FOUND]")
}

func TestFormatForUser_DebugIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(BackendUnavailable, "store unavailable", cause)

	result := FormatForUser(err, true)

	assert.Contains(t, result, "Cause:")
	assert.Contains(t, result, "connection refused")
}

func TestFormatForUser_StandardError(t *testing.T) {
	err := errors.New("something went wrong")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	result := FormatForUser(nil, false)

	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := New(DocumentNotFound, "document not found", nil).
		WithDetail("id", "abc123")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, string(DocumentNotFound), result["code"])
	assert.Equal(t, "document not found", result["message"])
	assert.Equal(t, string(SeverityError), result["severity"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc123", details["id"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, string(Internal), result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(Internal, "operation failed", cause)

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_ContainsCode(t *testing.T) {
	err := New(InvalidCursor, "cursor expired", nil)

	result := FormatForCLI(err)

	assert.Contains(t, result, "cursor expired")
	assert.Contains(t, result, "INVALID_CURSOR")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := New(DocumentNotFound, "document not found", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "Should be concise")
}

func TestFormatForLog_IncludesDetails(t *testing.T) {
	err := New(Embedding, "embedder failed", nil).WithDetail("model", "nomic-embed-text")

	fields := FormatForLog(err)

	assert.Equal(t, string(Embedding), fields["error_code"])
	assert.Equal(t, "nomic-embed-text", fields["detail_model"])
}
