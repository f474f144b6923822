package beadscli

import "errors"

// Errors returned by Client operations.
//
// These can be checked with errors.Is:
//
//	if errors.Is(err, beadscli.ErrMalformedResponse) {
//	    // bd printed something that is not a dependency tree
//	}
var (
	// ErrCommandFailed is returned when the bd process exits unsuccessfully
	// or cannot be started.
	ErrCommandFailed = errors.New("bd command failed")

	// ErrMalformedResponse is returned when bd output cannot be parsed.
	ErrMalformedResponse = errors.New("malformed bd response")

	// ErrTimeout is returned when a command exceeds the runner's timeout.
	ErrTimeout = errors.New("bd command timed out")

	// ErrInvalidArgument is returned before running anything when an issue
	// ID is empty.
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsMalformed reports whether err came from unparsable bd output.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsRetryable reports whether re-running the same command might succeed.
// Nothing in this module retries automatically; callers decide.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTimeout)
}
