package build

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Manifest is the audit record of one build invocation.
type Manifest struct {
	Timestamp      time.Time         `json:"timestamp"`
	Executable     string            `json:"executable"`
	Dir            string            `json:"dir"`
	Args           []string          `json:"args"`
	Goals          []string          `json:"goals"`
	Properties     map[string]string `json:"properties,omitempty"`
	ExitCode       int               `json:"exit_code"`
	Duration       string            `json:"duration"`
	SucceededSteps []string          `json:"succeeded_steps,omitempty"`
	LogFile        string            `json:"log_file"`
	LogDigest      string            `json:"log_blake3,omitempty"`
}

// NewManifest records an invocation and its outcome.
func NewManifest(executable string, args, goals []string, props map[string]string, dir string, outcome *Outcome) *Manifest {
	return &Manifest{
		Timestamp:      time.Now(),
		Executable:     executable,
		Dir:            dir,
		Args:           args,
		Goals:          goals,
		Properties:     props,
		ExitCode:       outcome.ExitCode,
		Duration:       outcome.Duration.String(),
		SucceededSteps: outcome.SucceededSteps,
		LogFile:        outcome.LogFile,
	}
}

// Save writes the manifest into dir and returns its path.
func (m *Manifest) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create manifest directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json",
		m.Timestamp.Format("20060102_150405.000000000"),
		strings.Join(m.Goals, "+"))
	path := filepath.Join(dir, sanitize(name))

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// AddLogDigest records the blake3 digest of the build log.
func (m *Manifest) AddLogDigest(path string) error {
	digest, err := HashFile(path)
	if err != nil {
		return err
	}
	m.LogDigest = digest
	return nil
}

// HashFile computes the blake3 digest of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is a log file this process wrote
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}
