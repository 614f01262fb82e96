// Package build drives the external build tool and classifies its outcome.
package build

import (
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// Outcome is the result of one build tool invocation.
type Outcome struct {
	// SucceededSteps lists build steps in the order they were confirmed.
	SucceededSteps []string
	Failed         bool
	LogFile        string
	ExitCode       int
	Duration       time.Duration
	// Tests is nil when the invocation never reached the test phase.
	Tests *TestOutcome
}

// TestOutcome is the reconciled view of the structured test reports.
type TestOutcome struct {
	Executed []string
	Failed   []string
	Warnings []string
}

// Succeeded reports whether something ran and nothing failed.
func (t *TestOutcome) Succeeded() bool {
	return t != nil && len(t.Executed) > 0 && len(t.Failed) == 0
}

// ExecutionError is returned when the build tool could not be started, its
// output could not be processed, or it exited non-zero. It carries whatever
// was learned before the failure.
type ExecutionError struct {
	Outcome
	// Started is false when the process never ran.
	Started bool
	Err     *errors.Error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func newExecutionError(outcome Outcome, started bool, msg string, cause error) *ExecutionError {
	outcome.Failed = true
	return &ExecutionError{
		Outcome: outcome,
		Started: started,
		Err:     errors.NewBuildExecutionError(msg, cause),
	}
}

func exitMessage(code int) string {
	return fmt.Sprintf("build exited with code %d", code)
}

// set keeps unique strings and returns them sorted.
type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
