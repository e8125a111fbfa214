package musecli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeMapsCodedErrors(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitUserError, exitCode(userError(errors.New("bad flag"))))
	assert.Equal(t, ExitNotARepo, exitCode(notARepoError(errors.New("no .muse"))))
	assert.Equal(t, ExitInternalErr, exitCode(internalError(errors.New("network blip"))))
}

func TestExitCodeDefaultsUnwrappedErrorsToInternal(t *testing.T) {
	assert.Equal(t, ExitInternalErr, exitCode(errors.New("not a CodedError")))
}

func TestCodedErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := userError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Error())
}
