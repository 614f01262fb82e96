package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMetadataUnavailable, "test error message")

	if err.Code != ErrCodeMetadataUnavailable {
		t.Errorf("expected code %s, got %s", ErrCodeMetadataUnavailable, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeReportRead, "failed to read report", cause)

	if err.Code != ErrCodeReportRead {
		t.Errorf("expected code %s, got %s", ErrCodeReportRead, err.Code)
	}

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeConfigInvalid, "invalid config"),
			wantCode: "CONFIG-001",
			wantMsg:  "invalid config",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeReportWrite, "write failed", fmt.Errorf("permission denied")),
			wantCode: "REPORT-002",
			wantMsg:  "permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestions(t *testing.T) {
	err := New(ErrCodeSourceUnavailable, "clone failed").
		WithSuggestion("first").
		WithSuggestions("second", "third").
		WithDocs("https://example.com/docs")

	if len(err.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(err.Suggestions))
	}

	out := err.Error()
	for _, want := range []string{"Suggestions:", "first", "third", "Documentation: https://example.com/docs"} {
		if !strings.Contains(out, want) {
			t.Errorf("error string missing %q: %s", want, out)
		}
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}

	wrapped := fmt.Errorf("context: %w", New(ErrCodeHookFatal, "boom"))
	if got := CodeOf(wrapped); got != ErrCodeHookFatal {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ErrCodeHookFatal)
	}
}

func TestHasCode(t *testing.T) {
	inner := New(ErrCodeInternalFatal, "inner")
	outer := Wrap(ErrCodeHookFatal, "outer", fmt.Errorf("via: %w", inner))

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"outer code", outer, ErrCodeHookFatal, true},
		{"nested code", outer, ErrCodeInternalFatal, true},
		{"absent code", outer, ErrCodeReportRead, false},
		{"plain error", fmt.Errorf("plain"), ErrCodeHookFatal, false},
		{"nil", nil, ErrCodeHookFatal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("cause")

	tests := []struct {
		name string
		err  *Error
		code ErrorCode
	}{
		{"metadata", NewMetadataUnavailableError("git", "no extractor"), ErrCodeMetadataUnavailable},
		{"source", NewSourceUnavailableError("scm:git:https://x", cause), ErrCodeSourceUnavailable},
		{"build", NewBuildExecutionError("mvn failed", cause), ErrCodeBuildExecutionFailed},
		{"hook validation", NewHookValidationError("h", "checkout", cause), ErrCodeHookValidation},
		{"config", NewConfigInvalidError("missing war"), ErrCodeConfigInvalid},
		{"archive", NewArchiveInvalidError("x.war", cause), ErrCodeArchiveInvalid},
		{"report read", NewReportReadError("r.json", cause), ErrCodeReportRead},
		{"report write", NewReportWriteError("r.json", cause), ErrCodeReportWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("message should not be empty")
			}
		})
	}
}
