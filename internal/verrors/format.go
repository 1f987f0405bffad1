package verrors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, includes additional technical details.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	ve, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder

	sb.WriteString("Error: ")
	sb.WriteString(ve.Message)
	sb.WriteString("\n")

	if debug && ve.Cause != nil {
		sb.WriteString("\nCause: ")
		sb.WriteString(ve.Cause.Error())
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", ve.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ve, ok := err.(*Error)
	if !ok {
		ve = Wrap(Internal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", ve.Message))
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ve.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Severity  string            `json:"severity"`
	Details   map[string]string `json:"details,omitempty"`
	Cause     string            `json:"cause,omitempty"`
	Retryable bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ve, ok := err.(*Error)
	if !ok {
		ve = Wrap(Internal, err)
	}

	je := jsonError{
		Code:      string(ve.Code),
		Message:   ve.Message,
		Severity:  string(ve.Severity),
		Details:   ve.Details,
		Retryable: ve.Retryable,
	}

	if ve.Cause != nil {
		je.Cause = ve.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ve, ok := err.(*Error)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": string(ve.Code),
		"message":    ve.Message,
		"severity":   string(ve.Severity),
		"retryable":  ve.Retryable,
	}

	if ve.Cause != nil {
		result["cause"] = ve.Cause.Error()
	}

	for k, v := range ve.Details {
		result["detail_"+k] = v
	}

	return result
}
