// Package config loads run settings from flags, PCT_* environment variables,
// a YAML file and defaults, in that order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
)

const (
	EnvPrefix         = "PCT"
	DefaultConfigName = "pct"

	DefaultWorkingDir   = "pct-work"
	DefaultReportFile   = "pct-report.json"
	DefaultCacheTimeout = 100 * time.Hour
)

// Config holds the settings of one run. Keys match the flag names.
type Config struct {
	War            string   `mapstructure:"war"`
	PluginArchives []string `mapstructure:"plugin-archive"`
	WorkingDir     string   `mapstructure:"working-dir"`

	IncludePlugins []string `mapstructure:"include-plugins"`
	ExcludePlugins []string `mapstructure:"exclude-plugins"`
	ExcludeHooks   []string `mapstructure:"exclude-hooks"`
	HooksFile      string   `mapstructure:"hooks-file"`

	Maven             string   `mapstructure:"mvn"`
	MavenSettings     string   `mapstructure:"maven-settings"`
	MavenProperties   []string `mapstructure:"maven-property"`
	MavenArgs         []string `mapstructure:"maven-arg"`
	RerunFailingTests int      `mapstructure:"rerun-failing-tests"`

	LocalCheckoutDir string `mapstructure:"local-checkout-dir"`
	SSHKey           string `mapstructure:"ssh-key"`
	SSHKnownHosts    string `mapstructure:"ssh-known-hosts"`

	FailFast       bool          `mapstructure:"fail-fast"`
	ReportFile     string        `mapstructure:"report-file"`
	CacheTimeout   time.Duration `mapstructure:"cache-timeout"`
	CacheThreshold string        `mapstructure:"cache-threshold"`

	MetricsFile  string `mapstructure:"metrics-file"`
	OTLPEndpoint string `mapstructure:"otlp-endpoint"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// RegisterFlags adds the run flags to fs. Their defaults are the config
// defaults so --help shows the effective values.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("war", "", "Host distribution archive (WAR) to test against")
	fs.StringSlice("plugin-archive", nil, "Test these plugin archives (.hpi/.jpi) instead of the bundled plugins")
	fs.String("working-dir", DefaultWorkingDir, "Directory for checkouts, build logs and manifests")

	fs.StringSlice("include-plugins", nil, "Only test these plugin ids")
	fs.StringSlice("exclude-plugins", nil, "Skip these plugin ids")
	fs.StringSlice("exclude-hooks", nil, "Never run the hooks with these names")
	fs.String("hooks-file", "", "YAML file with additional hook rules")

	fs.String("mvn", "", "Path to the Maven executable (default: mvn on PATH)")
	fs.String("maven-settings", "", "Maven settings.xml passed with -s")
	fs.StringArray("maven-property", nil, "Extra build property as key=value (repeatable)")
	fs.StringArray("maven-arg", nil, "Extra build tool argument (repeatable)")
	fs.Int("rerun-failing-tests", 0, "Rerun failing tests up to this many times")

	fs.String("local-checkout-dir", "", "Use plugin sources from this directory instead of cloning")
	fs.String("ssh-key", "", "Private key for SSH checkouts")
	fs.String("ssh-known-hosts", "", "known_hosts file for SSH checkouts (default: ~/.ssh/known_hosts)")

	fs.Bool("fail-fast", false, "Stop at the first plugin that does not pass")
	fs.String("report-file", DefaultReportFile, "Persisted report, also used as the result cache")
	fs.Duration("cache-timeout", DefaultCacheTimeout, "Reuse cached results younger than this (0 disables the cache)")
	fs.String("cache-threshold", string(report.StatusInternalError), "Minimum cached status that is reused")

	fs.String("metrics-file", "", "Write Prometheus metrics to this textfile at the end of the run")
	fs.String("otlp-endpoint", "", "OTLP/HTTP endpoint for traces (host:port)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("working-dir", DefaultWorkingDir)
	v.SetDefault("report-file", DefaultReportFile)
	v.SetDefault("cache-timeout", DefaultCacheTimeout)
	v.SetDefault("cache-threshold", string(report.StatusInternalError))
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
}

// Load merges the configuration sources. An explicitly named file must exist;
// otherwise pct.yaml is looked up in the working directory and ~/.config/pct.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "cannot read configuration file", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "cannot bind flags", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "cannot decode configuration", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate reports the first invalid setting as CONFIG-001.
func (c *Config) Validate() error {
	if c.War == "" {
		return errors.NewConfigInvalidError("--war is required").
			WithSuggestion("Pass the host distribution with --war path/to/jenkins.war")
	}
	if c.WorkingDir == "" {
		return errors.NewConfigInvalidError("--working-dir must not be empty")
	}
	if c.ReportFile == "" {
		return errors.NewConfigInvalidError("--report-file must not be empty")
	}
	if c.CacheTimeout < 0 {
		return errors.NewConfigInvalidError(fmt.Sprintf("--cache-timeout %s is negative", c.CacheTimeout))
	}
	if _, err := report.ParseStatus(c.CacheThreshold); err != nil {
		return errors.NewConfigInvalidError("--cache-threshold: " + err.Error())
	}
	if c.RerunFailingTests < 0 {
		return errors.NewConfigInvalidError("--rerun-failing-tests must not be negative")
	}
	if _, err := c.BuildProperties(); err != nil {
		return err
	}
	for _, a := range c.MavenArgs {
		if strings.TrimSpace(a) == "" {
			return errors.NewConfigInvalidError("--maven-arg must not be empty")
		}
	}
	for _, id := range c.IncludePlugins {
		if c.Excluded(id) {
			return errors.NewConfigInvalidError(fmt.Sprintf("plugin %s is both included and excluded", id))
		}
	}
	if c.SSHKnownHosts != "" && c.SSHKey == "" {
		return errors.NewConfigInvalidError("--ssh-known-hosts requires --ssh-key")
	}

	var level log.Level
	if err := level.Set(c.LogLevel); err != nil {
		return errors.NewConfigInvalidError(err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "console":
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("unknown log format %q", c.LogFormat))
	}
	return nil
}

// BuildProperties parses the --maven-property entries.
func (c *Config) BuildProperties() (map[string]string, error) {
	props := make(map[string]string, len(c.MavenProperties))
	for _, p := range c.MavenProperties {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.NewConfigInvalidError(fmt.Sprintf("--maven-property %q is not key=value", p))
		}
		props[strings.TrimSpace(k)] = v
	}
	return props, nil
}

// Threshold returns the parsed cache threshold, defaulting to internal-error.
func (c *Config) Threshold() report.Status {
	s, err := report.ParseStatus(c.CacheThreshold)
	if err != nil {
		return report.StatusInternalError
	}
	return s
}

// Included reports whether pluginID passes the include list. An empty list
// includes everything.
func (c *Config) Included(pluginID string) bool {
	if len(c.IncludePlugins) == 0 {
		return true
	}
	return contains(c.IncludePlugins, pluginID)
}

// Excluded reports whether pluginID is on the exclude list.
func (c *Config) Excluded(pluginID string) bool {
	return contains(c.ExcludePlugins, pluginID)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
