// Package archivetest builds distribution and plugin archives for tests.
package archivetest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Plugin describes a plugin archive to build.
type Plugin struct {
	// FileName is the archive name inside the distribution, e.g. "git.hpi".
	FileName string
	// Manifest attributes written to META-INF/MANIFEST.MF.
	Manifest map[string]string
	// POMs maps "<groupId>/<artifactId>" to pom.xml content.
	POMs map[string]string
	// Detached places the archive under WEB-INF/detached-plugins.
	Detached bool
}

// ManifestBytes renders attributes in sorted order so fixtures are stable.
func ManifestBytes(attrs map[string]string) []byte {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	for _, k := range keys {
		if k == "Manifest-Version" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\r\n", k, attrs[k])
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// PluginBytes builds the plugin archive in memory.
func PluginBytes(t testing.TB, p Plugin) []byte {
	t.Helper()

	files := map[string][]byte{
		"META-INF/MANIFEST.MF": ManifestBytes(p.Manifest),
	}
	for coords, pom := range p.POMs {
		files["META-INF/maven/"+coords+"/pom.xml"] = []byte(pom)
	}
	return zipBytes(t, files)
}

// WritePlugin writes a standalone plugin archive into dir and returns its path.
func WritePlugin(t testing.TB, dir string, p Plugin) string {
	t.Helper()

	path := filepath.Join(dir, p.FileName)
	if err := os.WriteFile(path, PluginBytes(t, p), 0o600); err != nil {
		t.Fatalf("write plugin archive: %v", err)
	}
	return path
}

// WriteDistribution writes a distribution archive declaring coreVersion and
// bundling plugins, and returns its path.
func WriteDistribution(t testing.TB, dir, coreVersion string, plugins ...Plugin) string {
	t.Helper()

	files := map[string][]byte{
		"META-INF/MANIFEST.MF": ManifestBytes(map[string]string{"Jenkins-Version": coreVersion}),
	}
	for _, p := range plugins {
		base := "WEB-INF/plugins/"
		if p.Detached {
			base = "WEB-INF/detached-plugins/"
		}
		files[base+p.FileName] = PluginBytes(t, p)
	}

	path := filepath.Join(dir, "jenkins.war")
	if err := os.WriteFile(path, zipBytes(t, files), 0o600); err != nil {
		t.Fatalf("write distribution: %v", err)
	}
	return path
}

func zipBytes(t testing.TB, files map[string][]byte) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
