package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Metadata errors (META-001 to META-099)
	ErrCodeMetadataUnavailable ErrorCode = "META-001"

	// Source errors (SCM-001 to SCM-099)
	ErrCodeSourceUnavailable ErrorCode = "SCM-001"

	// Build errors (BUILD-001 to BUILD-099)
	ErrCodeBuildExecutionFailed ErrorCode = "BUILD-001"

	// Hook errors (HOOK-001 to HOOK-099)
	ErrCodeHookFatal      ErrorCode = "HOOK-001"
	ErrCodeHookValidation ErrorCode = "HOOK-002"

	// Archive errors (ARCHIVE-001 to ARCHIVE-099)
	ErrCodeArchiveInvalid ErrorCode = "ARCHIVE-001"

	// Report errors (REPORT-001 to REPORT-099)
	ErrCodeReportRead  ErrorCode = "REPORT-001"
	ErrCodeReportWrite ErrorCode = "REPORT-002"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"

	// Internal errors (INTERNAL-001 to INTERNAL-099)
	ErrCodeInternalFatal ErrorCode = "INTERNAL-001"
)

// Error represents an enhanced error with code, suggestions, and documentation
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new Error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *Error) WithDocs(url string) *Error {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the outermost coded error in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Cause
	}
	return false
}

// Common error constructors for frequently used errors

// NewMetadataUnavailableError creates a metadata resolution error
func NewMetadataUnavailableError(plugin string, reason string) *Error {
	return New(ErrCodeMetadataUnavailable, fmt.Sprintf("metadata unavailable for %s: %s", plugin, reason)).
		WithSuggestion("Check that the plugin archive embeds a manifest with SCM provenance or a project descriptor")
}

// NewSourceUnavailableError creates a checkout failure error
func NewSourceUnavailableError(url string, cause error) *Error {
	return Wrap(ErrCodeSourceUnavailable, fmt.Sprintf("sources unavailable: %s", url), cause).
		WithSuggestion("Verify the repository URL and that the tag or revision exists").
		WithSuggestion("Use --local-checkout-dir to test against a local clone")
}

// NewBuildExecutionError creates a build tool failure error
func NewBuildExecutionError(message string, cause error) *Error {
	return Wrap(ErrCodeBuildExecutionFailed, message, cause)
}

// NewHookValidationError creates a stage invariant violation error
func NewHookValidationError(hook string, stage string, cause error) *Error {
	return Wrap(ErrCodeHookValidation, fmt.Sprintf("hook %s left the %s context invalid", hook, stage), cause).
		WithSuggestion(fmt.Sprintf("Exclude the hook with --exclude-hooks %s", hook))
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'pct run --help' to see the available flags")
}

// NewArchiveInvalidError creates an unreadable archive error
func NewArchiveInvalidError(path string, cause error) *Error {
	return Wrap(ErrCodeArchiveInvalid, fmt.Sprintf("cannot read archive: %s", path), cause).
		WithSuggestion("Check that the file is a ZIP-compatible distribution archive")
}

// NewReportReadError creates a report load error
func NewReportReadError(path string, cause error) *Error {
	return Wrap(ErrCodeReportRead, fmt.Sprintf("failed to read report: %s", path), cause).
		WithSuggestion("Remove or move the report file to start with an empty cache")
}

// NewReportWriteError creates a report persistence error
func NewReportWriteError(path string, cause error) *Error {
	return Wrap(ErrCodeReportWrite, fmt.Sprintf("failed to write report: %s", path), cause)
}
