package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
)

func checkoutContext(t *testing.T, pluginID string) *CheckoutContext {
	t.Helper()
	return &CheckoutContext{
		Common: Common{
			Plugin:      testPlugin(pluginID),
			CoreVersion: "2.440.1",
			Config:      &RunConfig{WorkingDir: t.TempDir()},
			Logger:      log.Discard(),
		},
		Shared: NewSharedCheckouts(),
	}
}

func writePOM(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project/>"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLocalCheckout(t *testing.T) {
	root := t.TempDir()
	writePOM(t, filepath.Join(root, "git"))
	writePOM(t, filepath.Join(root, "matrix-auth-plugin"))

	tests := []struct {
		plugin  string
		want    string
		applies bool
	}{
		{"git", filepath.Join(root, "git"), true},
		{"matrix-auth", filepath.Join(root, "matrix-auth-plugin"), true},
		{"workflow-api", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.plugin, func(t *testing.T) {
			c := checkoutContext(t, tt.plugin)
			c.Config.LocalCheckoutDir = root

			h := LocalCheckout{}
			if got := h.Check(c); got != tt.applies {
				t.Fatalf("Check() = %v, want %v", got, tt.applies)
			}
			if !tt.applies {
				return
			}
			if err := h.Action(context.Background(), c); err != nil {
				t.Fatalf("Action() error: %v", err)
			}
			if c.CheckoutDir != tt.want || !c.CheckoutDone {
				t.Errorf("CheckoutDir = %q done=%v, want %q", c.CheckoutDir, c.CheckoutDone, tt.want)
			}
			if err := h.Validate(c); err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestLocalCheckoutRootIsClone(t *testing.T) {
	root := filepath.Join(t.TempDir(), "git-plugin")
	writePOM(t, root)

	c := checkoutContext(t, "git")
	c.Config.LocalCheckoutDir = root

	h := LocalCheckout{}
	if !h.Check(c) {
		t.Fatal("Check() = false for a clone named after the repository")
	}
	if err := h.Action(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if c.CheckoutDir != root {
		t.Errorf("CheckoutDir = %q, want %q", c.CheckoutDir, root)
	}
}

func TestLocalCheckoutInactive(t *testing.T) {
	c := checkoutContext(t, "git")
	if (LocalCheckout{}).Check(c) {
		t.Error("Check() = true without a local checkout directory")
	}
}

func TestMultiModuleCheckoutSharesClone(t *testing.T) {
	scm := &fakeSCM{mkdir: func(dir string) error { return os.MkdirAll(dir, 0o755) }}
	shared := NewSharedCheckouts()
	workDir := t.TempDir()

	var dirs []string
	for _, id := range []string{"pipeline-model-api", "pipeline-model-definition"} {
		c := checkoutContext(t, id)
		c.Config.WorkingDir = workDir
		c.Plugin.SourceURL = "scm:git:https://github.com/jenkinsci/pipeline-model-definition-plugin.git"
		c.Plugin.GitReference = "pipeline-model-definition-parent-2.2150"
		c.Plugin.ModulePath = id
		c.SCM = scm
		c.Shared = shared

		h := MultiModuleCheckout{}
		if !h.Check(c) {
			t.Fatalf("Check() = false for %s", id)
		}
		if err := h.Action(context.Background(), c); err != nil {
			t.Fatalf("Action() error: %v", err)
		}
		if err := h.Validate(c); err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		dirs = append(dirs, c.CheckoutDir)
	}

	if len(scm.calls) != 1 {
		t.Errorf("checkouts = %v, want exactly one", scm.calls)
	}
	if dirs[0] != dirs[1] {
		t.Errorf("plugins did not share the checkout: %v", dirs)
	}
	if want := filepath.Join(workDir, "pipeline-model-definition-plugin"); dirs[0] != want {
		t.Errorf("checkout dir = %q, want %q", dirs[0], want)
	}
}

func TestMultiModuleCheckoutFailure(t *testing.T) {
	c := checkoutContext(t, "pipeline-model-api")
	c.Plugin.ModulePath = "pipeline-model-api"
	c.SCM = &fakeSCM{err: errBoom}

	h := MultiModuleCheckout{}
	if err := h.Action(context.Background(), c); err == nil {
		t.Fatal("expected checkout error")
	}
	if c.CheckoutDone || c.Shared.Len() != 0 {
		t.Error("failed checkout recorded")
	}
}

func TestMultiModuleCheckoutSingleModuleIgnored(t *testing.T) {
	c := checkoutContext(t, "git")
	c.SCM = &fakeSCM{}
	if (MultiModuleCheckout{}).Check(c) {
		t.Error("Check() = true for a single-module plugin")
	}
}

func TestUpperBoundsExcludes(t *testing.T) {
	c := compilationContext("git")
	h := UpperBoundsExcludes{}
	if !h.Check(c) {
		t.Fatal("Check() = false with a group id")
	}
	if err := h.Action(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if len(c.UpperBoundsExcludes) != 1 || c.UpperBoundsExcludes[0] != "org.jenkins-ci.plugins:git" {
		t.Errorf("UpperBoundsExcludes = %v", c.UpperBoundsExcludes)
	}

	c.Plugin.GroupID = ""
	if h.Check(c) {
		t.Error("Check() = true without a group id")
	}
}

func TestRerunFailingTests(t *testing.T) {
	c := NewExecutionContext(compilationContext("git"), "surefire:test")
	h := RerunFailingTests{}
	if h.Check(c) {
		t.Fatal("Check() = true with reruns disabled")
	}

	c.Config.RerunFailingTests = 2
	if !h.Check(c) {
		t.Fatal("Check() = false with reruns enabled")
	}
	if err := h.Action(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if c.Properties[RerunProperty] != "2" {
		t.Errorf("Properties = %v", c.Properties)
	}
}
