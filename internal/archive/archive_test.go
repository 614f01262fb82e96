package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive/archivetest"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

func TestOpenDistribution(t *testing.T) {
	dir := t.TempDir()
	war := archivetest.WriteDistribution(t, dir, "2.440.1",
		archivetest.Plugin{FileName: "workflow-step-api.jpi", Manifest: map[string]string{"Short-Name": "workflow-step-api"}},
		archivetest.Plugin{FileName: "git.hpi", Manifest: map[string]string{"Short-Name": "git"}},
		archivetest.Plugin{FileName: "matrix-auth.hpi", Manifest: map[string]string{"Short-Name": "matrix-auth"}, Detached: true},
		archivetest.Plugin{FileName: "git.jpi", Manifest: map[string]string{"Short-Name": "git"}, Detached: true},
	)

	d, err := archive.Open(war)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Equal(t, "2.440.1", d.CoreVersion)

	var names []string
	for _, e := range d.Plugins() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"git", "matrix-auth", "workflow-step-api"}, names)

	for _, e := range d.Plugins() {
		if e.Name == "git" {
			assert.Equal(t, "WEB-INF/plugins/git.hpi", e.Path)
		}
	}
}

func TestOpenDistributionPrefersBundledCopy(t *testing.T) {
	dir := t.TempDir()
	// detached-plugins sorts before plugins, so the detached copies are
	// written first.
	war := archivetest.WriteDistribution(t, dir, "2.440.1",
		archivetest.Plugin{FileName: "credentials.jpi", Manifest: map[string]string{"Short-Name": "credentials"}, Detached: true},
		archivetest.Plugin{FileName: "credentials.hpi", Manifest: map[string]string{"Short-Name": "credentials"}},
		archivetest.Plugin{FileName: "junit.hpi", Manifest: map[string]string{"Short-Name": "junit"}, Detached: true},
	)

	d, err := archive.Open(war)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	paths := make(map[string]string)
	for _, e := range d.Plugins() {
		paths[e.Name] = e.Path
	}
	assert.Equal(t, map[string]string{
		"credentials": "WEB-INF/plugins/credentials.hpi",
		"junit":       "WEB-INF/detached-plugins/junit.hpi",
	}, paths)
}

func TestOpenDistributionWithoutCoreVersion(t *testing.T) {
	dir := t.TempDir()
	war := archivetest.WriteDistribution(t, dir, "")

	d, err := archive.Open(war)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Empty(t, d.CoreVersion)
	assert.Empty(t, d.Plugins())
}

func TestOpenInvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.war")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := archive.Open(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeArchiveInvalid))
}

func TestEntryOpen(t *testing.T) {
	dir := t.TempDir()
	war := archivetest.WriteDistribution(t, dir, "2.440.1", archivetest.Plugin{
		FileName: "git.hpi",
		Manifest: map[string]string{
			"Short-Name":     "git",
			"Plugin-Version": "5.2.1",
		},
		POMs: map[string]string{
			"org.jenkins-ci.plugins/git": "<project><artifactId>git</artifactId></project>",
		},
	})

	d, err := archive.Open(war)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	plugins := d.Plugins()
	require.Len(t, plugins, 1)

	p, err := plugins[0].Open()
	require.NoError(t, err)
	assert.Equal(t, "git.hpi", p.FileName)
	assert.Equal(t, "git", p.ShortName())
	assert.Equal(t, "5.2.1", p.Version())

	pom, ok := p.POM()
	require.True(t, ok)
	assert.Contains(t, string(pom), "<artifactId>git</artifactId>")
}

func TestPluginPOMSelection(t *testing.T) {
	dir := t.TempDir()
	path := archivetest.WritePlugin(t, dir, archivetest.Plugin{
		FileName: "pipeline-model-definition.hpi",
		Manifest: map[string]string{"Short-Name": "pipeline-model-definition"},
		POMs: map[string]string{
			"org.jenkinsci.plugins/aaa-shaded":                "<project>shaded</project>",
			"org.jenkinsci.plugins/pipeline-model-definition": "<project>main</project>",
		},
	})

	p, err := archive.OpenPlugin(path)
	require.NoError(t, err)

	pom, ok := p.POM()
	require.True(t, ok)
	assert.Equal(t, "<project>main</project>", string(pom))
}

func TestPluginWithoutPOM(t *testing.T) {
	path := archivetest.WritePlugin(t, t.TempDir(), archivetest.Plugin{
		FileName: "bare.hpi",
		Manifest: map[string]string{"Short-Name": "bare", "Implementation-Version": "1.0"},
	})

	p, err := archive.OpenPlugin(path)
	require.NoError(t, err)

	_, ok := p.POM()
	assert.False(t, ok)
	assert.Equal(t, "1.0", p.Version())
}

func TestNestedEntriesIgnored(t *testing.T) {
	// only direct children of the plugin directories count
	dir := t.TempDir()
	war := archivetest.WriteDistribution(t, dir, "2.440.1",
		archivetest.Plugin{FileName: "nested/evil.hpi", Manifest: map[string]string{"Short-Name": "evil"}},
		archivetest.Plugin{FileName: "readme.txt", Manifest: map[string]string{}},
	)

	d, err := archive.Open(war)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Empty(t, d.Plugins())
}
