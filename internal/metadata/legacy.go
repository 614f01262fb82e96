package metadata

import (
	"fmt"
	"strings"
)

// LegacyExtractor falls back to the project descriptor embedded in the archive.
type LegacyExtractor struct{}

func (LegacyExtractor) Name() string  { return "legacy" }
func (LegacyExtractor) Priority() int { return 10 }

func (LegacyExtractor) IsApplicable(d *Descriptor) bool {
	return d.HasPOM()
}

func (LegacyExtractor) Extract(d *Descriptor) (*PluginMetadata, error) {
	pom, err := d.POM()
	if err != nil {
		return nil, err
	}

	conn := pom.SCM.Connection
	if strings.TrimSpace(conn) == "" {
		conn = pom.SCM.DeveloperConnection
	}
	if strings.TrimSpace(conn) == "" {
		return nil, fmt.Errorf("project descriptor declares no scm connection")
	}

	url, err := NormalizeSCM(pom.Interpolate(conn))
	if err != nil {
		return nil, err
	}

	md := legacyBase(d, pom)
	md.SourceURL = url
	md.GitReference = legacyTag(pom.Interpolate(pom.SCM.Tag), pom.ArtifactID, md.Version)
	return md, nil
}

// LegacyMultiModuleExtractor applies a fixed artifact id to repository
// sub-directory table for multi-module repositories whose plugins predate the
// provenance attributes.
type LegacyMultiModuleExtractor struct {
	Remap map[string]Module
}

func (LegacyMultiModuleExtractor) Name() string  { return "legacy-multi-module" }
func (LegacyMultiModuleExtractor) Priority() int { return 20 }

func (e LegacyMultiModuleExtractor) IsApplicable(d *Descriptor) bool {
	if !d.HasPOM() {
		return false
	}
	pom, err := d.POM()
	if err != nil {
		return false
	}
	_, ok := e.Remap[pom.ArtifactID]
	return ok
}

func (e LegacyMultiModuleExtractor) Extract(d *Descriptor) (*PluginMetadata, error) {
	pom, err := d.POM()
	if err != nil {
		return nil, err
	}
	mod, ok := e.Remap[pom.ArtifactID]
	if !ok {
		return nil, fmt.Errorf("artifact %s is not a known multi-module plugin", pom.ArtifactID)
	}

	md := legacyBase(d, pom)
	md.SourceURL = GitScheme + mod.Repository
	md.ModulePath = mod.Path

	tagBase := mod.TagPrefix
	if tagBase == "" {
		tagBase = pom.ArtifactID
	}
	md.GitReference = legacyTag(pom.Interpolate(pom.SCM.Tag), tagBase, md.Version)
	return md, nil
}

func legacyBase(d *Descriptor, pom *POM) *PluginMetadata {
	id := d.Attr(AttrShortName)
	if id == "" {
		id = pom.ArtifactID
	}
	version := d.Attr(AttrPluginVersion)
	if version == "" {
		version = pom.Version
	}
	name := d.Attr(AttrLongName)
	if name == "" {
		name = strings.TrimSpace(pom.Name)
	}
	return &PluginMetadata{
		PluginID:    id,
		Version:     version,
		DisplayName: name,
		GroupID:     pom.GroupID,
	}
}

// legacyTag falls back to the release plugin's <artifactId>-<version> naming
// when the descriptor carries no usable tag.
func legacyTag(tag, base, version string) string {
	if tag == "" || tag == "HEAD" {
		if version == "" {
			return ""
		}
		return base + "-" + version
	}
	return tag
}
