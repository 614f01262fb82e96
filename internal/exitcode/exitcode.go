package exitcode

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates every tested plugin reached an acceptable status
	Success = 0

	// GeneralError indicates an internal or unexpected failure
	GeneralError = 1

	// UsageError indicates invalid command usage or configuration
	UsageError = 2

	// PluginFailures indicates at least one plugin ended with an unacceptable status
	PluginFailures = 3

	// InputError indicates the distribution archive or report could not be read
	InputError = 4

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// ErrPluginFailures is returned by the run command when the run completed but
// some plugin statuses were unacceptable.
var ErrPluginFailures = stderrors.New("one or more plugins failed compatibility testing")

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to an exit code using its error code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	if stderrors.Is(err, ErrPluginFailures) {
		return PluginFailures
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeConfigInvalid:
		return UsageError
	case errors.ErrCodeArchiveInvalid, errors.ErrCodeReportRead:
		return InputError
	case errors.ErrCodeMetadataUnavailable,
		errors.ErrCodeSourceUnavailable,
		errors.ErrCodeBuildExecutionFailed:
		return PluginFailures
	default:
		return GeneralError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or configuration)"
	case PluginFailures:
		return "Plugin compatibility failures"
	case InputError:
		return "Unreadable input archive or report"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
