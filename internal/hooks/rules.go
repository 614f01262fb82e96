package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blang/semver"
	"gopkg.in/yaml.v3"
)

// Rule is a declarative hook: when it applies to a plugin and core version,
// it adds build arguments, properties, version overrides, or upper-bounds
// exclusions, and may skip compilation.
type Rule struct {
	Name    string   `yaml:"name" json:"name"`
	Stage   Stage    `yaml:"stage" json:"stage"`
	Plugins []string `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	// CoreVersions is a semver range such as ">=2.400.0 <2.450.0".
	CoreVersions        string            `yaml:"coreVersions,omitempty" json:"coreVersions,omitempty"`
	Args                []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Properties          map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
	OverrideVersions    map[string]string `yaml:"overrideVersions,omitempty" json:"overrideVersions,omitempty"`
	UpperBoundsExcludes []string          `yaml:"upperBoundsExcludes,omitempty" json:"upperBoundsExcludes,omitempty"`
	SkipCompilation     bool              `yaml:"skipCompilation,omitempty" json:"skipCompilation,omitempty"`
}

// RuleFile is the layout of a rules file.
type RuleFile struct {
	Rules []Rule `yaml:"rules"`
}

// BuiltinRules ship with the tester.
var BuiltinRules = []Rule{
	{
		Name:  "skip-static-analysis",
		Stage: StageExecution,
		Properties: map[string]string{
			"spotbugs.skip":       "true",
			"spotless.check.skip": "true",
			"checkstyle.skip":     "true",
			"jacoco.skip":         "true",
		},
	},
	{
		Name:       "skip-javadoc",
		Stage:      StageCompilation,
		Properties: map[string]string{"maven.javadoc.skip": "true"},
	},
	{
		Name:                "configuration-as-code-test-harness",
		Stage:               StageCompilation,
		Plugins:             []string{"configuration-as-code"},
		UpperBoundsExcludes: []string{"io.jenkins.configuration-as-code:test-harness"},
	},
}

// Validate checks the rule is well formed.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule without a name")
	}
	switch r.Stage {
	case StageCompilation, StageExecution:
	case StageCheckout:
		return fmt.Errorf("rule %s: checkout rules are not supported", r.Name)
	default:
		return fmt.Errorf("rule %s: unknown stage %q", r.Name, r.Stage)
	}
	if r.SkipCompilation && r.Stage != StageCompilation {
		return fmt.Errorf("rule %s: skipCompilation only applies to the compilation stage", r.Name)
	}
	if _, err := r.coreRange(); err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	for _, p := range r.Plugins {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("rule %s: empty plugin id", r.Name)
		}
	}
	settings := BuildSettings{
		Args:                r.Args,
		Properties:          r.Properties,
		OverrideVersions:    r.OverrideVersions,
		UpperBoundsExcludes: r.UpperBoundsExcludes,
	}
	if err := settings.validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return nil
}

func (r Rule) coreRange() (semver.Range, error) {
	if strings.TrimSpace(r.CoreVersions) == "" {
		return nil, nil
	}
	rng, err := semver.ParseRange(r.CoreVersions)
	if err != nil {
		return nil, fmt.Errorf("invalid core version range %q: %w", r.CoreVersions, err)
	}
	return rng, nil
}

// ParseRules decodes a rules file. Unknown fields are rejected.
func ParseRules(data []byte) ([]Rule, error) {
	var file RuleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for _, r := range file.Rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Rules, nil
}

// LoadRules reads a rules file from disk.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied rules file
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// WithRules returns a copy of the catalog with rule hooks appended to their
// stage.
func (c Catalog) WithRules(rules ...Rule) (Catalog, error) {
	out := Catalog{
		Checkout:    append([]func() CheckoutHook(nil), c.Checkout...),
		Compilation: append([]func() CompilationHook(nil), c.Compilation...),
		Execution:   append([]func() ExecutionHook(nil), c.Execution...),
	}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return Catalog{}, err
		}
		rng, _ := rule.coreRange() //nolint:errcheck // validated above

		switch rule.Stage {
		case StageCompilation:
			h := &ruleHook[*CompilationContext]{rule: rule, rng: rng}
			out.Compilation = append(out.Compilation, func() CompilationHook { return h })
		case StageExecution:
			h := &ruleHook[*ExecutionContext]{rule: rule, rng: rng}
			out.Execution = append(out.Execution, func() ExecutionHook { return h })
		}
	}
	return out, nil
}

type buildStage interface {
	StageContext
	Settings() *BuildSettings
}

type ruleHook[C buildStage] struct {
	Invariant[C]
	rule Rule
	rng  semver.Range
}

func (h *ruleHook[C]) Name() string      { return h.rule.Name }
func (h *ruleHook[C]) Plugins() []string { return h.rule.Plugins }

func (h *ruleHook[C]) Check(c C) bool {
	if h.rng == nil {
		return true
	}
	v, err := semver.ParseTolerant(c.Base().CoreVersion)
	if err != nil {
		c.Base().logger().Debug("Core version is not semver, rule skipped",
			"rule", h.rule.Name, "core_version", c.Base().CoreVersion)
		return false
	}
	return h.rng(v)
}

func (h *ruleHook[C]) Action(_ context.Context, c C) error {
	s := c.Settings()
	s.AddArgs(h.rule.Args...)
	for k, v := range h.rule.Properties {
		s.SetProperty(k, v)
	}
	for coord, version := range h.rule.OverrideVersions {
		s.Override(coord, version)
	}
	for _, coord := range h.rule.UpperBoundsExcludes {
		s.ExcludeUpperBound(coord)
	}
	if cc, ok := any(c).(*CompilationContext); ok && h.rule.SkipCompilation {
		cc.CompilationDone = true
	}
	return nil
}
