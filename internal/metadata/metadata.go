// Package metadata derives a plugin's identity and source location from its
// packaged archive through a priority-ordered chain of extractors.
package metadata

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive"
)

// PluginMetadata is the canonical identity and source location of a plugin.
type PluginMetadata struct {
	PluginID     string `json:"pluginId"`
	Version      string `json:"version"`
	SourceURL    string `json:"sourceUrl"`
	GitReference string `json:"gitReference,omitempty"`
	ModulePath   string `json:"modulePath,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	GroupID      string `json:"groupId,omitempty"`
	Extractor    string `json:"extractor"`
}

// Validate checks the required fields and the source URL scheme.
func (m *PluginMetadata) Validate() error {
	var missing []string
	if strings.TrimSpace(m.PluginID) == "" {
		missing = append(missing, "plugin id")
	}
	if strings.TrimSpace(m.Version) == "" {
		missing = append(missing, "version")
	}
	if strings.TrimSpace(m.SourceURL) == "" {
		missing = append(missing, "source url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(m.SourceURL, GitScheme) {
		return fmt.Errorf("unsupported source url %q", m.SourceURL)
	}
	return nil
}

// IsMultiModule reports whether the plugin lives in a sub-directory of a
// shared repository.
func (m *PluginMetadata) IsMultiModule() bool {
	return m.ModulePath != ""
}

// Manifest attributes written by the build tool for modern plugins.
const (
	AttrShortName     = "Short-Name"
	AttrPluginVersion = "Plugin-Version"
	AttrLongName      = "Long-Name"
	AttrGroupID       = "Group-Id"
	AttrScmConnection = "Plugin-ScmConnection"
	AttrScmTag        = "Plugin-ScmTag"
	AttrGitHash       = "Plugin-GitHash"
	AttrModule        = "Plugin-Module"
)

// Descriptor is the part of a plugin archive the extractors look at.
type Descriptor struct {
	FileName string
	Manifest archive.Manifest
	// RawPOM is the embedded project descriptor, nil when absent.
	RawPOM []byte

	pom    *POM
	pomErr error
	parsed bool
}

// NewDescriptor builds a descriptor from an opened plugin archive.
func NewDescriptor(p *archive.PluginArchive) *Descriptor {
	d := &Descriptor{FileName: p.FileName, Manifest: p.Manifest}
	if pom, ok := p.POM(); ok {
		d.RawPOM = pom
	}
	if d.Manifest == nil {
		d.Manifest = archive.Manifest{}
	}
	return d
}

// Attr returns a trimmed manifest attribute.
func (d *Descriptor) Attr(key string) string {
	return strings.TrimSpace(d.Manifest.Get(key))
}

// HasPOM reports whether a project descriptor is embedded.
func (d *Descriptor) HasPOM() bool {
	return len(d.RawPOM) > 0
}

// POM parses the embedded project descriptor once.
func (d *Descriptor) POM() (*POM, error) {
	if !d.parsed {
		d.parsed = true
		if !d.HasPOM() {
			d.pomErr = fmt.Errorf("no embedded project descriptor")
		} else {
			d.pom, d.pomErr = ParsePOM(d.RawPOM)
		}
	}
	return d.pom, d.pomErr
}

// POM is the subset of a Maven project descriptor the legacy extractors need.
type POM struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Name       string `xml:"name"`
	Parent     struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
	SCM struct {
		Connection          string `xml:"connection"`
		DeveloperConnection string `xml:"developerConnection"`
		URL                 string `xml:"url"`
		Tag                 string `xml:"tag"`
	} `xml:"scm"`
}

// ParsePOM decodes a project descriptor and fills group and version from the
// parent when they are inherited.
func ParsePOM(data []byte) (*POM, error) {
	var p POM
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project descriptor: %w", err)
	}
	p.GroupID = strings.TrimSpace(p.GroupID)
	p.ArtifactID = strings.TrimSpace(p.ArtifactID)
	p.Version = strings.TrimSpace(p.Version)
	if p.GroupID == "" {
		p.GroupID = strings.TrimSpace(p.Parent.GroupID)
	}
	if p.Version == "" {
		p.Version = strings.TrimSpace(p.Parent.Version)
	}
	return &p, nil
}

// Interpolate substitutes the artifact placeholders the legacy extractors
// understand.
func (p *POM) Interpolate(s string) string {
	r := strings.NewReplacer(
		"${project.artifactId}", p.ArtifactID,
		"${artifactId}", p.ArtifactID,
		"${project.version}", p.Version,
	)
	return strings.TrimSpace(r.Replace(s))
}
