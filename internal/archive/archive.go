// Package archive reads host distribution archives and the plugin archives
// bundled inside them.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// maxPluginSize bounds how much of a nested plugin archive is read into memory.
const maxPluginSize = 1 << 30

// Plugin archives are bundled under these directories of the distribution.
var pluginDirs = []string{"WEB-INF/plugins/", "WEB-INF/detached-plugins/"}

var pluginExtensions = []string{".hpi", ".jpi"}

// Core version manifest attributes, in lookup order.
var coreVersionAttributes = []string{"Jenkins-Version", "Implementation-Version"}

// Distribution is an opened host distribution archive.
type Distribution struct {
	Path        string
	CoreVersion string
	Manifest    Manifest

	reader  *zip.ReadCloser
	entries []Entry
}

// Entry is one plugin archive bundled inside a distribution.
type Entry struct {
	// Name is the archive file name without directory or extension.
	Name string
	// Path is the location inside the distribution.
	Path string

	file *zip.File
}

// Open opens a ZIP-compatible distribution and indexes its bundled plugins.
func Open(path string) (*Distribution, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.NewArchiveInvalidError(path, err)
	}

	d := &Distribution{Path: path, reader: zr}

	if mf := findFile(&zr.Reader, ManifestPath); mf != nil {
		m, err := readManifest(mf)
		if err != nil {
			_ = zr.Close() //nolint:errcheck
			return nil, errors.NewArchiveInvalidError(path, err)
		}
		d.Manifest = m
		for _, attr := range coreVersionAttributes {
			if m.Has(attr) {
				d.CoreVersion = strings.TrimSpace(m.Get(attr))
				break
			}
		}
	}

	// A plugin present in several directories is taken from the earliest
	// directory in pluginDirs, whatever the ZIP order.
	type indexed struct {
		pos  int
		rank int
	}
	byName := make(map[string]indexed)
	for _, f := range zr.File {
		name, rank, ok := pluginEntryName(f.Name)
		if !ok {
			continue
		}
		entry := Entry{Name: name, Path: f.Name, file: f}
		if prev, dup := byName[name]; dup {
			if rank < prev.rank {
				d.entries[prev.pos] = entry
				byName[name] = indexed{pos: prev.pos, rank: rank}
			}
			continue
		}
		byName[name] = indexed{pos: len(d.entries), rank: rank}
		d.entries = append(d.entries, entry)
	}

	sort.Slice(d.entries, func(i, j int) bool {
		return d.entries[i].Name < d.entries[j].Name
	})

	return d, nil
}

// Close releases the underlying file.
func (d *Distribution) Close() error {
	if d.reader == nil {
		return nil
	}
	return d.reader.Close()
}

// Plugins returns the bundled plugin archives sorted by name.
func (d *Distribution) Plugins() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Open reads the nested plugin archive into memory and parses it.
func (e Entry) Open() (*PluginArchive, error) {
	if e.file == nil {
		return nil, fmt.Errorf("entry %s is not backed by an archive", e.Name)
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, errors.NewArchiveInvalidError(e.Path, err)
	}
	defer func() { _ = rc.Close() }() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(rc, maxPluginSize))
	if err != nil {
		return nil, errors.NewArchiveInvalidError(e.Path, err)
	}
	return ReadPlugin(path.Base(e.Path), data)
}

// pluginEntryName returns the plugin name of a bundled archive and the rank
// of the directory it sits in.
func pluginEntryName(name string) (string, int, bool) {
	for rank, dir := range pluginDirs {
		if !strings.HasPrefix(name, dir) {
			continue
		}
		base := strings.TrimPrefix(name, dir)
		if base == "" || strings.Contains(base, "/") {
			return "", 0, false
		}
		for _, ext := range pluginExtensions {
			if strings.HasSuffix(base, ext) {
				return strings.TrimSuffix(base, ext), rank, true
			}
		}
	}
	return "", 0, false
}

func findFile(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readManifest(f *zip.File) (Manifest, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }() //nolint:errcheck
	return ParseManifest(rc)
}

// PluginArchive is a parsed plugin archive: its manifest and any embedded
// project descriptors.
type PluginArchive struct {
	FileName string
	Manifest Manifest

	poms map[string][]byte
}

// OpenPlugin reads a standalone plugin archive from disk.
func OpenPlugin(path string) (*PluginArchive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewArchiveInvalidError(path, err)
	}
	return ReadPlugin(path, data)
}

// ReadPlugin parses an in-memory plugin archive.
func ReadPlugin(name string, data []byte) (*PluginArchive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.NewArchiveInvalidError(name, err)
	}

	p := &PluginArchive{
		FileName: path.Base(name),
		Manifest: make(Manifest),
		poms:     make(map[string][]byte),
	}

	for _, f := range zr.File {
		switch {
		case f.Name == ManifestPath:
			m, err := readManifest(f)
			if err != nil {
				return nil, errors.NewArchiveInvalidError(name, err)
			}
			p.Manifest = m
		case isEmbeddedPOM(f.Name):
			rc, err := f.Open()
			if err != nil {
				return nil, errors.NewArchiveInvalidError(name, err)
			}
			body, err := io.ReadAll(rc)
			_ = rc.Close() //nolint:errcheck
			if err != nil {
				return nil, errors.NewArchiveInvalidError(name, err)
			}
			p.poms[f.Name] = body
		}
	}

	return p, nil
}

// isEmbeddedPOM matches META-INF/maven/<groupId>/<artifactId>/pom.xml.
func isEmbeddedPOM(name string) bool {
	parts := strings.Split(name, "/")
	return len(parts) == 5 &&
		parts[0] == "META-INF" &&
		parts[1] == "maven" &&
		parts[2] != "" && parts[3] != "" &&
		parts[4] == "pom.xml"
}

// ShortName returns the plugin's declared short name.
func (p *PluginArchive) ShortName() string {
	return strings.TrimSpace(p.Manifest.Get("Short-Name"))
}

// Version returns the plugin's declared version.
func (p *PluginArchive) Version() string {
	if v := strings.TrimSpace(p.Manifest.Get("Plugin-Version")); v != "" {
		return v
	}
	return strings.TrimSpace(p.Manifest.Get("Implementation-Version"))
}

// POM returns the embedded project descriptor. When several are embedded the
// one whose artifactId directory matches the short name wins, otherwise the
// lexically first.
func (p *PluginArchive) POM() ([]byte, bool) {
	if len(p.poms) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(p.poms))
	for k := range p.poms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if short := p.ShortName(); short != "" {
		for _, k := range keys {
			if strings.Split(k, "/")[3] == short {
				return p.poms[k], true
			}
		}
	}
	return p.poms[keys[0]], true
}
