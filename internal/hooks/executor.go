package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// RunCheckout runs the checkout hooks for c's plugin.
func (r *Registry) RunCheckout(ctx context.Context, c *CheckoutContext, excluded []string) ([]Result, error) {
	return runStage(ctx, r, r.checkout, c, excluded)
}

// RunCompilation runs the compilation hooks for c's plugin.
func (r *Registry) RunCompilation(ctx context.Context, c *CompilationContext, excluded []string) ([]Result, error) {
	return runStage(ctx, r, r.compilation, c, excluded)
}

// RunExecution runs the execution hooks for c's plugin.
func (r *Registry) RunExecution(ctx context.Context, c *ExecutionContext, excluded []string) ([]Result, error) {
	return runStage(ctx, r, r.execution, c, excluded)
}

// runStage evaluates Check, then Action and Validate, for each queued hook.
// Excluded hooks are skipped unconditionally. A failed action is logged and
// the next hook runs, unless the failure is fatal. A broken invariant always
// stops the run since later stages would consume a corrupt context.
func runStage[C StageContext](ctx context.Context, r *Registry, b *bucket[C], c C, excluded []string) ([]Result, error) {
	base := c.Base()
	stage := c.Stage()
	pluginID := base.Plugin.PluginID
	logger := base.logger().With("stage", string(stage))

	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	var results []Result
	record := func(res Result) {
		results = append(results, res)
		r.notify(res)
	}

	for _, h := range b.queue(pluginID) {
		res := Result{
			HookName:  h.Name(),
			Stage:     stage,
			Plugin:    pluginID,
			Timestamp: time.Now(),
		}

		if skip[h.Name()] {
			res.Excluded = true
			record(res)
			continue
		}

		apply, cerr := guard(h, "check", func() bool { return h.Check(c) })
		if cerr != nil {
			res.Error = cerr.Error()
			record(res)
			return results, cerr
		}
		if !apply {
			record(res)
			continue
		}

		res.Ran = true
		start := time.Now()
		err := invoke(ctx, h, c)
		res.Duration = time.Since(start)

		if err != nil {
			res.Error = err.Error()
			if IsFatal(err) {
				record(res)
				return results, err
			}
			logger.Warn("Hook action failed", "hook", h.Name(), "error", err)
		}

		if verr := h.Validate(c); verr != nil {
			herr := errors.NewHookValidationError(h.Name(), string(stage), verr)
			res.Error = herr.Error()
			record(res)
			return results, herr
		}

		logger.Debug("Hook ran", "hook", h.Name(), "duration", res.Duration)
		record(res)
	}

	return results, nil
}

// guard evaluates fn and turns a panic into a fatal error naming the hook
// and the operation.
func guard[C StageContext](h Hook[C], op string, fn func() bool) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			err = Fatal(fmt.Errorf("hook %s panicked in %s: %v", h.Name(), op, p))
		}
	}()
	return fn(), nil
}

// invoke turns a panicking action into a fatal error.
func invoke[C StageContext](ctx context.Context, h Hook[C], c C) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Fatal(fmt.Errorf("hook %s panicked: %v", h.Name(), p))
		}
	}()
	return h.Action(ctx, c)
}
