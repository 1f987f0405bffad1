package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veyra-dev/veyra/internal/verrors"
)

func TestExitCode_Success(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
}

func TestExitCode_ConfigError(t *testing.T) {
	err := wrapConfigError(errors.New("bad yaml"))
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestExitCode_BackendError(t *testing.T) {
	err := verrors.New(verrors.BackendUnavailable, "store unreachable", nil)
	assert.Equal(t, ExitBackendError, ExitCode(err))
}

func TestExitCode_UserErrorDefault(t *testing.T) {
	err := verrors.New(verrors.InvalidArgument, "bad query", nil)
	assert.Equal(t, ExitUserError, ExitCode(err))

	assert.Equal(t, ExitUserError, ExitCode(errors.New("plain error")))
}
