package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/build"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/metadata"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/scm"
)

// Properties through which overrides and exclusions reach the build.
const (
	PropertyOverrideVersions    = "overrideVersions"
	PropertyUpperBoundsExcludes = "upperBoundsExcludes"
)

// RunConfig is the run-wide configuration hooks may read.
type RunConfig struct {
	WorkingDir        string
	LocalCheckoutDir  string
	RerunFailingTests int
}

// Common is the immutable part of every stage context.
type Common struct {
	Plugin      *metadata.PluginMetadata
	CoreVersion string
	Config      *RunConfig
	Build       build.Runner
	SCM         scm.Client
	Logger      *log.Logger
}

// Base returns the shared references.
func (c *Common) Base() *Common { return c }

func (c *Common) logger() *log.Logger {
	if c.Logger == nil {
		return log.DefaultLogger()
	}
	return c.Logger
}

// CheckoutContext is handed to checkout hooks. A hook that provides the
// sources sets CheckoutDir and CheckoutDone so the default checkout is
// skipped.
type CheckoutContext struct {
	Common
	CheckoutDir  string
	CheckoutDone bool
	// Shared is the only state shared across plugins. Only checkout hooks
	// write to it.
	Shared *SharedCheckouts
}

func (c *CheckoutContext) Stage() Stage { return StageCheckout }

// Validate requires a set checkout directory to be an existing absolute
// directory and a completed checkout to name its directory.
func (c *CheckoutContext) Validate() error {
	if c.CheckoutDir != "" {
		if !filepath.IsAbs(c.CheckoutDir) {
			return fmt.Errorf("checkout directory %q is not absolute", c.CheckoutDir)
		}
		info, err := os.Stat(c.CheckoutDir)
		if err != nil {
			return fmt.Errorf("checkout directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("checkout directory %q is not a directory", c.CheckoutDir)
		}
	}
	if c.CheckoutDone && c.CheckoutDir == "" {
		return fmt.Errorf("checkout marked done without a checkout directory")
	}
	return nil
}

// BuildSettings are the extension fields shared by the compilation and
// execution stages.
type BuildSettings struct {
	PluginDir           string
	Args                []string
	Properties          map[string]string
	OverrideVersions    map[string]string
	UpperBoundsExcludes []string
}

// Settings returns the mutable build settings.
func (b *BuildSettings) Settings() *BuildSettings { return b }

// AddArgs appends build tool arguments.
func (b *BuildSettings) AddArgs(args ...string) {
	b.Args = append(b.Args, args...)
}

// SetProperty sets a build property.
func (b *BuildSettings) SetProperty(key, value string) {
	if b.Properties == nil {
		b.Properties = make(map[string]string)
	}
	b.Properties[key] = value
}

// Override pins a dependency coordinate (groupId:artifactId) to version.
func (b *BuildSettings) Override(coordinate, version string) {
	if b.OverrideVersions == nil {
		b.OverrideVersions = make(map[string]string)
	}
	b.OverrideVersions[coordinate] = version
}

// ExcludeUpperBound removes a coordinate from the upper-bounds check.
func (b *BuildSettings) ExcludeUpperBound(coordinate string) {
	for _, c := range b.UpperBoundsExcludes {
		if c == coordinate {
			return
		}
	}
	b.UpperBoundsExcludes = append(b.UpperBoundsExcludes, coordinate)
}

// BuildProperties renders the properties passed to the build tool, with
// overrides and exclusions flattened into comma-separated sorted lists.
func (b *BuildSettings) BuildProperties() map[string]string {
	props := make(map[string]string, len(b.Properties)+2)
	for k, v := range b.Properties {
		props[k] = v
	}

	if len(b.OverrideVersions) > 0 {
		pairs := make([]string, 0, len(b.OverrideVersions))
		for coord, version := range b.OverrideVersions {
			pairs = append(pairs, coord+"="+version)
		}
		sort.Strings(pairs)
		props[PropertyOverrideVersions] = strings.Join(pairs, ",")
	}

	if len(b.UpperBoundsExcludes) > 0 {
		excludes := append([]string(nil), b.UpperBoundsExcludes...)
		sort.Strings(excludes)
		props[PropertyUpperBoundsExcludes] = strings.Join(excludes, ",")
	}

	return props
}

// Clone returns a deep copy.
func (b *BuildSettings) Clone() BuildSettings {
	out := BuildSettings{
		PluginDir:           b.PluginDir,
		Args:                append([]string(nil), b.Args...),
		UpperBoundsExcludes: append([]string(nil), b.UpperBoundsExcludes...),
	}
	if b.Properties != nil {
		out.Properties = make(map[string]string, len(b.Properties))
		for k, v := range b.Properties {
			out.Properties[k] = v
		}
	}
	if b.OverrideVersions != nil {
		out.OverrideVersions = make(map[string]string, len(b.OverrideVersions))
		for k, v := range b.OverrideVersions {
			out.OverrideVersions[k] = v
		}
	}
	return out
}

func (b *BuildSettings) validate() error {
	for i, a := range b.Args {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("argument %d is empty", i)
		}
	}
	for k := range b.Properties {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("property with empty key")
		}
	}
	for coord, version := range b.OverrideVersions {
		if strings.TrimSpace(coord) == "" || strings.TrimSpace(version) == "" {
			return fmt.Errorf("override %q=%q has an empty side", coord, version)
		}
	}
	for _, c := range b.UpperBoundsExcludes {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("empty upper bounds exclusion")
		}
	}
	return nil
}

// CompilationContext is handed to compilation hooks. A hook that compiles
// the plugin itself, or decides it must not be compiled, sets
// CompilationDone.
type CompilationContext struct {
	Common
	BuildSettings
	CompilationDone bool
}

func (c *CompilationContext) Stage() Stage { return StageCompilation }

func (c *CompilationContext) Validate() error {
	if err := c.BuildSettings.validate(); err != nil {
		return err
	}
	if c.CompilationDone && c.PluginDir == "" {
		return fmt.Errorf("compilation marked done without a plugin directory")
	}
	return nil
}

// ExecutionContext is handed to execution hooks. It is seeded from the
// compilation stage's settings.
type ExecutionContext struct {
	Common
	BuildSettings
	Goals []string
}

func (c *ExecutionContext) Stage() Stage { return StageExecution }

func (c *ExecutionContext) Validate() error {
	if err := c.BuildSettings.validate(); err != nil {
		return err
	}
	if c.PluginDir == "" {
		return fmt.Errorf("execution without a plugin directory")
	}
	for i, g := range c.Goals {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("goal %d is empty", i)
		}
	}
	return nil
}

// NewExecutionContext carries the compilation settings forward.
func NewExecutionContext(from *CompilationContext, goals ...string) *ExecutionContext {
	return &ExecutionContext{
		Common:        from.Common,
		BuildSettings: from.BuildSettings.Clone(),
		Goals:         goals,
	}
}
