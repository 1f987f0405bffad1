// Package verrors provides the stable error taxonomy surfaced by the core
// retrieval pipeline to its callers (CLI, MCP tool server, tests).
//
// Ten kinds are stable across releases; callers are expected to branch on
// Code, never on message text.
package verrors

// Code identifies one of the stable error kinds callers can branch on.
type Code string

const (
	// InvalidArgument means caller input violates a documented contract
	// (bad k, conflicting flags, malformed filter).
	InvalidArgument Code = "INVALID_ARGUMENT"

	// DocumentNotFound means get/update/delete targeted an unknown id.
	DocumentNotFound Code = "DOCUMENT_NOT_FOUND"

	// DimensionMismatch means a vector's length does not match the
	// store's configured dimension.
	DimensionMismatch Code = "DIMENSION_MISMATCH"

	// NotInitialized means an adapter method ran before Initialize.
	NotInitialized Code = "NOT_INITIALIZED"

	// BackendUnavailable means a storage extension failed to load or a
	// connection was lost.
	BackendUnavailable Code = "BACKEND_UNAVAILABLE"

	// Cancelled means cancellation was observed at a suspension point.
	Cancelled Code = "CANCELLED"

	// InvalidCursor means an opaque pagination token failed to parse.
	InvalidCursor Code = "INVALID_CURSOR"

	// Embedding wraps a failure reported by the embedding façade.
	Embedding Code = "EMBEDDING"

	// IO wraps file read, glob expansion, or HTTP fetch failures.
	IO Code = "IO"

	// Internal indicates an invariant violation; must not occur from
	// valid inputs.
	Internal Code = "INTERNAL"
)

// Severity classifies how a caller should react to an error of a given code.
type Severity string

const (
	// SeverityFatal means the current operation cannot continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed but the process may continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning means a degraded result was still produced.
	SeverityWarning Severity = "WARNING"
)

// retryableCodes are worth a caller-side retry (network/backend blips).
var retryableCodes = map[Code]bool{
	BackendUnavailable: true,
	IO:                 true,
	Cancelled:          true,
}

// fatalCodes abort the current operation outright.
var fatalCodes = map[Code]bool{
	NotInitialized:    true,
	DimensionMismatch: true,
}

func severityFromCode(c Code) Severity {
	if fatalCodes[c] {
		return SeverityFatal
	}
	if retryableCodes[c] {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(c Code) bool {
	return retryableCodes[c]
}
