package report

import "fmt"

// Status is the terminal outcome recorded for one plugin against one core version.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusTestsFailed        Status = "tests-failed"
	StatusCompilationFailed  Status = "compilation-failed"
	StatusSourcesUnavailable Status = "sources-unavailable"
	StatusInternalError      Status = "internal-error"
)

// Statuses lists every status from most to least severe.
var Statuses = []Status{
	StatusInternalError,
	StatusSourcesUnavailable,
	StatusCompilationFailed,
	StatusTestsFailed,
	StatusOK,
}

// Rank orders statuses by severity; higher is better. Unknown statuses rank
// below internal-error.
func (s Status) Rank() int {
	switch s {
	case StatusInternalError:
		return 0
	case StatusSourcesUnavailable:
		return 1
	case StatusCompilationFailed:
		return 2
	case StatusTestsFailed:
		return 3
	case StatusOK:
		return 4
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Acceptable reports whether s should not fail the run.
func (s Status) Acceptable() bool {
	return s == StatusOK
}

// AtLeast reports whether s is no more severe than min.
func (s Status) AtLeast(min Status) bool {
	return s.Rank() >= min.Rank()
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a status name.
func ParseStatus(name string) (Status, error) {
	s := Status(name)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q (valid: ok, tests-failed, compilation-failed, sources-unavailable, internal-error)", name)
	}
	return s, nil
}

// Set implements pflag.Value.
func (s *Status) Set(name string) error {
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Type implements pflag.Value.
func (s *Status) Type() string {
	return "status"
}
