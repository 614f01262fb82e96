package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/scm"
)

// DefaultCatalog returns the built-in strategy hooks followed by the built-in
// rules.
func DefaultCatalog() Catalog {
	c := Catalog{
		Checkout: []func() CheckoutHook{
			func() CheckoutHook { return LocalCheckout{} },
			func() CheckoutHook { return MultiModuleCheckout{} },
		},
		Compilation: []func() CompilationHook{
			func() CompilationHook { return UpperBoundsExcludes{} },
		},
		Execution: []func() ExecutionHook{
			func() ExecutionHook { return RerunFailingTests{} },
		},
	}

	withRules, err := c.WithRules(BuiltinRules...)
	if err != nil {
		panic(fmt.Sprintf("hooks: invalid built-in rule: %v", err))
	}
	return withRules
}

// LocalCheckout uses sources from the local checkout directory instead of
// cloning. The directory may be a clone of the plugin's repository or hold
// one clone per plugin, named after the plugin id or the repository.
type LocalCheckout struct {
	Invariant[*CheckoutContext]
}

func (LocalCheckout) Name() string      { return "local-checkout" }
func (LocalCheckout) Plugins() []string { return nil }

func (h LocalCheckout) Check(c *CheckoutContext) bool {
	if c.CheckoutDone || c.Config == nil || c.Config.LocalCheckoutDir == "" {
		return false
	}
	_, ok := h.find(c)
	return ok
}

func (h LocalCheckout) Action(_ context.Context, c *CheckoutContext) error {
	dir, ok := h.find(c)
	if !ok {
		return fmt.Errorf("no local checkout of %s under %s", c.Plugin.PluginID, c.Config.LocalCheckoutDir)
	}
	c.CheckoutDir = dir
	c.CheckoutDone = true
	return nil
}

func (LocalCheckout) find(c *CheckoutContext) (string, bool) {
	root, err := filepath.Abs(c.Config.LocalCheckoutDir)
	if err != nil {
		return "", false
	}
	repo := scm.RepositoryName(c.Plugin.SourceURL)

	candidates := []string{
		filepath.Join(root, c.Plugin.PluginID),
		filepath.Join(root, repo),
	}
	if base := filepath.Base(root); base == c.Plugin.PluginID || base == repo {
		candidates = append(candidates, root)
	}

	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, c.Plugin.ModulePath, "pom.xml")) {
			return dir, true
		}
	}
	return "", false
}

// MultiModuleCheckout clones a multi-module repository once per run and
// points every plugin of the group at the shared checkout.
type MultiModuleCheckout struct {
	Invariant[*CheckoutContext]
}

func (MultiModuleCheckout) Name() string      { return "multi-module-checkout" }
func (MultiModuleCheckout) Plugins() []string { return nil }

func (MultiModuleCheckout) Check(c *CheckoutContext) bool {
	return !c.CheckoutDone && c.Plugin.IsMultiModule() && c.Shared != nil && c.SCM != nil && c.Config != nil
}

func (MultiModuleCheckout) Action(ctx context.Context, c *CheckoutContext) error {
	url, ref := c.Plugin.SourceURL, c.Plugin.GitReference

	if dir, ok := c.Shared.Lookup(url, ref); ok {
		c.logger().Debug("Reusing shared checkout", "dir", dir)
		c.CheckoutDir = dir
		c.CheckoutDone = true
		return nil
	}

	dir, err := filepath.Abs(filepath.Join(c.Config.WorkingDir, scm.RepositoryName(url)))
	if err != nil {
		return err
	}
	if err := c.SCM.Checkout(ctx, url, dir, ref); err != nil {
		return err
	}

	c.Shared.Record(url, ref, dir)
	c.CheckoutDir = dir
	c.CheckoutDone = true
	return nil
}

// UpperBoundsExcludes keeps the plugin under test out of the upper-bounds
// check, since the copy bundled in the distribution is older than the one
// being built.
type UpperBoundsExcludes struct {
	Invariant[*CompilationContext]
}

func (UpperBoundsExcludes) Name() string      { return "upper-bounds-excludes" }
func (UpperBoundsExcludes) Plugins() []string { return nil }

func (UpperBoundsExcludes) Check(c *CompilationContext) bool {
	return c.Plugin.GroupID != ""
}

func (UpperBoundsExcludes) Action(_ context.Context, c *CompilationContext) error {
	c.ExcludeUpperBound(c.Plugin.GroupID + ":" + c.Plugin.PluginID)
	return nil
}

// RerunFailingTests asks the test runner to retry failing tests.
type RerunFailingTests struct {
	Invariant[*ExecutionContext]
}

// RerunProperty is the surefire property controlling reruns.
const RerunProperty = "surefire.rerunFailingTestsCount"

func (RerunFailingTests) Name() string      { return "rerun-failing-tests" }
func (RerunFailingTests) Plugins() []string { return nil }

func (RerunFailingTests) Check(c *ExecutionContext) bool {
	return c.Config != nil && c.Config.RerunFailingTests > 0
}

func (RerunFailingTests) Action(_ context.Context, c *ExecutionContext) error {
	c.SetProperty(RerunProperty, strconv.Itoa(c.Config.RerunFailingTests))
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
