package cmd

import (
	"errors"

	"github.com/veyra-dev/veyra/internal/verrors"
)

// Exit codes per the CLI caller contract: 0 success, 1 caller/user error,
// 2 configuration error, 3 persistent backend error.
const (
	ExitSuccess      = 0
	ExitUserError    = 1
	ExitConfigError  = 2
	ExitBackendError = 3
)

// configError marks an error as arising from loading or validating
// configuration, distinct from a bad CLI argument.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// wrapConfigError marks err, if non-nil, as a configuration error for
// ExitCode's purposes.
func wrapConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &configError{err: err}
}

// ExitCode maps a command error to the process exit code the CLI
// contract promises its callers.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	var verr *verrors.Error
	if errors.As(err, &verr) {
		switch verr.Code {
		case verrors.BackendUnavailable, verrors.NotInitialized, verrors.Internal:
			return ExitBackendError
		default:
			return ExitUserError
		}
	}

	return ExitUserError
}
