// Package hooks runs stage-scoped customizations for each plugin under test.
//
// There are three stages: checkout, compilation and execution. Hooks for a
// stage are registered from a static Catalog, and each hook may be limited to
// a set of plugins. For a given plugin the catch-all hooks run first, then the
// plugin-specific ones, both in catalog order.
package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// Stage identifies a point in the per-plugin pipeline.
type Stage string

const (
	StageCheckout    Stage = "checkout"
	StageCompilation Stage = "compilation"
	StageExecution   Stage = "execution"
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageCheckout, StageCompilation, StageExecution}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, v := range Stages {
		if s == v {
			return true
		}
	}
	return false
}

// StageContext is the state handed to the hooks of one stage.
type StageContext interface {
	Stage() Stage
	Base() *Common
	// Validate checks the stage invariant. It never mutates the context.
	Validate() error
}

// Hook is a stage customization. Name is the identity used by exclusion
// lists; an empty Plugins list means the hook applies to every plugin.
type Hook[C StageContext] interface {
	Name() string
	Plugins() []string
	Check(c C) bool
	Action(ctx context.Context, c C) error
	Validate(c C) error
}

type (
	CheckoutHook    = Hook[*CheckoutContext]
	CompilationHook = Hook[*CompilationContext]
	ExecutionHook   = Hook[*ExecutionContext]
)

// Invariant provides the default Validate: the stage context's own invariant.
type Invariant[C StageContext] struct{}

func (Invariant[C]) Validate(c C) error {
	return c.Validate()
}

// Fatal marks an action error as one that must abort the whole run.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.ErrCodeHookFatal, "fatal hook error", err)
}

// IsFatal reports whether err aborts the run: a fatal action error or a
// broken stage invariant.
func IsFatal(err error) bool {
	return errors.HasCode(err, errors.ErrCodeHookFatal) || errors.HasCode(err, errors.ErrCodeHookValidation)
}

// Result records one hook's participation in a stage.
type Result struct {
	HookName  string        `json:"hookName"`
	Stage     Stage         `json:"stage"`
	Plugin    string        `json:"plugin"`
	Ran       bool          `json:"ran"`
	Excluded  bool          `json:"excluded,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Success reports whether the hook ran without error.
func (r Result) Success() bool {
	return r.Ran && r.Error == ""
}

func (r Result) String() string {
	switch {
	case r.Excluded:
		return fmt.Sprintf("%s/%s: excluded", r.Stage, r.HookName)
	case !r.Ran:
		return fmt.Sprintf("%s/%s: not applicable", r.Stage, r.HookName)
	case r.Error != "":
		return fmt.Sprintf("%s/%s: failed after %s: %s", r.Stage, r.HookName, r.Duration, r.Error)
	default:
		return fmt.Sprintf("%s/%s: ok in %s", r.Stage, r.HookName, r.Duration)
	}
}
