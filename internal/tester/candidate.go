package tester

import (
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive"
)

// Candidate is a plugin archive waiting to be tested. Archives are opened one
// at a time so a large distribution is never held in memory at once.
type Candidate struct {
	// Name identifies the archive before it is opened, usually its file name
	// without extension.
	Name string
	Open func() (*archive.PluginArchive, error)
}

// FromDistribution lists the plugins bundled in d, in archive order.
func FromDistribution(d *archive.Distribution) []Candidate {
	entries := d.Plugins()
	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, Candidate{Name: e.Name, Open: e.Open})
	}
	return out
}

// FromFiles lists standalone plugin archives.
func FromFiles(paths ...string) []Candidate {
	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		path := p
		base := filepath.Base(path)
		out = append(out, Candidate{
			Name: strings.TrimSuffix(base, filepath.Ext(base)),
			Open: func() (*archive.PluginArchive, error) { return archive.OpenPlugin(path) },
		})
	}
	return out
}
