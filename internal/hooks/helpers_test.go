package hooks

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/metadata"
)

// fakeHook records invocations and runs an optional action.
type fakeHook[C StageContext] struct {
	Invariant[C]
	name    string
	plugins []string
	check   bool
	checkFn func(C) bool
	action  func(C) error
	calls   *int
}

func (f *fakeHook[C]) Name() string      { return f.name }
func (f *fakeHook[C]) Plugins() []string { return f.plugins }
func (f *fakeHook[C]) Check(c C) bool {
	if f.checkFn != nil {
		return f.checkFn(c)
	}
	return f.check
}
func (f *fakeHook[C]) Action(_ context.Context, c C) error {
	if f.calls != nil {
		*f.calls++
	}
	if f.action != nil {
		return f.action(c)
	}
	return nil
}

func compilationHook(name string, plugins ...string) func() CompilationHook {
	h := &fakeHook[*CompilationContext]{name: name, plugins: plugins, check: true}
	return func() CompilationHook { return h }
}

func testPlugin(id string) *metadata.PluginMetadata {
	return &metadata.PluginMetadata{
		PluginID:  id,
		Version:   "1.0",
		SourceURL: "scm:git:https://github.com/jenkinsci/" + id + "-plugin.git",
		GroupID:   "org.jenkins-ci.plugins",
	}
}

func compilationContext(pluginID string) *CompilationContext {
	return &CompilationContext{
		Common: Common{
			Plugin:      testPlugin(pluginID),
			CoreVersion: "2.440.1",
			Config:      &RunConfig{},
			Logger:      log.Discard(),
		},
		BuildSettings: BuildSettings{PluginDir: "/work/" + pluginID},
	}
}

// fakeSCM counts checkouts and creates the target directory.
type fakeSCM struct {
	mu    sync.Mutex
	calls []string
	err   error
	mkdir func(dir string) error
}

func (f *fakeSCM) Checkout(_ context.Context, url, dir, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url+"@"+ref)
	if f.err != nil {
		return f.err
	}
	if f.mkdir != nil {
		return f.mkdir(dir)
	}
	return nil
}

var errBoom = errors.New("boom")
