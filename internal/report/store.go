package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// Store persists a Report as JSON at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the report file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the report. A missing file yields an empty report.
func (s *Store) Load() (*Report, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.NewReportReadError(s.path, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewReportReadError(s.path, err)
	}
	if r.Version == "" {
		r.Version = FormatVersion
	}

	for _, entry := range r.Plugins {
		for _, res := range entry.Results {
			if !res.Status.Valid() {
				return nil, errors.NewReportReadError(s.path,
					fmt.Errorf("plugin %s %s: unknown status %q", entry.PluginID, entry.PluginVersion, res.Status))
			}
		}
	}

	return &r, nil
}

// Save writes the report to a temporary file in the same directory and renames
// it over the target, so readers never observe a partial report.
func (s *Store) Save(r *Report) error {
	if r == nil {
		return errors.NewReportWriteError(s.path, fmt.Errorf("report is nil"))
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewReportWriteError(s.path, fmt.Errorf("create report directory: %w", err))
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.NewReportWriteError(s.path, fmt.Errorf("marshal report: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.NewReportWriteError(s.path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck
		return errors.NewReportWriteError(s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck
		return errors.NewReportWriteError(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewReportWriteError(s.path, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.NewReportWriteError(s.path, err)
	}

	return nil
}
