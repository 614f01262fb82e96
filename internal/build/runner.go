package build

import "context"

// Runner invokes the build tool in dir, appending its output to logFile.
// A failed invocation returns an *ExecutionError.
type Runner interface {
	Run(ctx context.Context, props map[string]string, dir, logFile string, goals ...string) (*Outcome, error)
}
