package musecli

// Exit codes the porcelain commands surface to the shell. Cobra itself
// only distinguishes success/failure, so every RunE that fails wraps its
// error in one of these to let Execute pick the right os.Exit code.
const (
	ExitSuccess     = 0
	ExitUserError   = 1
	ExitNotARepo    = 2
	ExitInternalErr = 3
)

// CodedError pairs an error with the process exit code it should
// produce, letting RunE return a single value while still choosing
// between user error, "not a repository", and internal/network failure.
type CodedError struct {
	Code int
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }
func (e *CodedError) Unwrap() error { return e.Err }

func userError(err error) error     { return &CodedError{Code: ExitUserError, Err: err} }
func notARepoError(err error) error { return &CodedError{Code: ExitNotARepo, Err: err} }
func internalError(err error) error { return &CodedError{Code: ExitInternalErr, Err: err} }

// exitCode extracts the process exit code for err, defaulting to
// ExitInternalErr for an error that isn't a *CodedError (a bug, not a
// modeled failure).
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if coded, ok := err.(*CodedError); ok {
		return coded.Code
	}

	return ExitInternalErr
}
