package hooks

import (
	"fmt"
	"sort"
)

// Catalog is the static list of hook constructors per stage. Constructors
// take no arguments; order is discovery order.
type Catalog struct {
	Checkout    []func() CheckoutHook
	Compilation []func() CompilationHook
	Execution   []func() ExecutionHook
}

// Info describes a registered hook.
type Info struct {
	Name    string   `json:"name"`
	Stage   Stage    `json:"stage"`
	Plugins []string `json:"plugins,omitempty"`
}

type bucket[C StageContext] struct {
	discovered []Hook[C]
	all        []Hook[C]
	byPlugin   map[string][]Hook[C]
}

func newBucket[C StageContext](stage Stage, ctors []func() Hook[C]) (*bucket[C], error) {
	b := &bucket[C]{byPlugin: make(map[string][]Hook[C])}
	names := make(map[string]bool)

	for _, ctor := range ctors {
		h := ctor()
		if h == nil {
			return nil, fmt.Errorf("%s hook constructor returned nil", stage)
		}
		if names[h.Name()] {
			return nil, fmt.Errorf("duplicate %s hook %q", stage, h.Name())
		}
		names[h.Name()] = true
		b.discovered = append(b.discovered, h)

		plugins := h.Plugins()
		if len(plugins) == 0 {
			b.all = append(b.all, h)
			continue
		}
		for _, p := range plugins {
			b.byPlugin[p] = append(b.byPlugin[p], h)
		}
	}
	return b, nil
}

// queue returns catch-all hooks then hooks targeting pluginID, each once.
func (b *bucket[C]) queue(pluginID string) []Hook[C] {
	seen := make(map[string]bool)
	var out []Hook[C]
	add := func(hs []Hook[C]) {
		for _, h := range hs {
			if !seen[h.Name()] {
				seen[h.Name()] = true
				out = append(out, h)
			}
		}
	}
	add(b.all)
	add(b.byPlugin[pluginID])
	return out
}

func (b *bucket[C]) describe(stage Stage) []Info {
	out := make([]Info, 0, len(b.discovered))
	for _, h := range b.discovered {
		plugins := append([]string(nil), h.Plugins()...)
		sort.Strings(plugins)
		out = append(out, Info{Name: h.Name(), Stage: stage, Plugins: plugins})
	}
	return out
}

// Registry holds every hook, constructed once, bucketed by stage and plugin.
type Registry struct {
	checkout    *bucket[*CheckoutContext]
	compilation *bucket[*CompilationContext]
	execution   *bucket[*ExecutionContext]

	observers []func(Result)
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver receives every hook result as it is produced.
func WithObserver(fn func(Result)) Option {
	return func(r *Registry) {
		r.observers = append(r.observers, fn)
	}
}

// NewRegistry constructs every hook in the catalog. Hook names must be unique
// within a stage.
func NewRegistry(c Catalog, opts ...Option) (*Registry, error) {
	var err error
	r := &Registry{}

	if r.checkout, err = newBucket(StageCheckout, c.Checkout); err != nil {
		return nil, err
	}
	if r.compilation, err = newBucket(StageCompilation, c.Compilation); err != nil {
		return nil, err
	}
	if r.execution, err = newBucket(StageExecution, c.Execution); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Describe lists every hook in stage and discovery order.
func (r *Registry) Describe() []Info {
	var out []Info
	out = append(out, r.checkout.describe(StageCheckout)...)
	out = append(out, r.compilation.describe(StageCompilation)...)
	out = append(out, r.execution.describe(StageExecution)...)
	return out
}

// Queue returns the names of the hooks that would run for pluginID at stage.
func (r *Registry) Queue(stage Stage, pluginID string) []string {
	var names []string
	switch stage {
	case StageCheckout:
		names = hookNames(r.checkout.queue(pluginID))
	case StageCompilation:
		names = hookNames(r.compilation.queue(pluginID))
	case StageExecution:
		names = hookNames(r.execution.queue(pluginID))
	}
	return names
}

// Count returns the number of registered hooks across stages.
func (r *Registry) Count() int {
	return len(r.checkout.discovered) + len(r.compilation.discovered) + len(r.execution.discovered)
}

func hookNames[C StageContext](hs []Hook[C]) []string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.Name()
	}
	return names
}

func (r *Registry) notify(res Result) {
	for _, fn := range r.observers {
		fn(res)
	}
}
