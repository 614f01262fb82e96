package archive

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ManifestPath is the location of the JAR manifest inside every archive.
const ManifestPath = "META-INF/MANIFEST.MF"

// Manifest holds the main-section attributes of a JAR manifest.
type Manifest map[string]string

// Get returns the attribute value, or "" when absent.
func (m Manifest) Get(key string) string {
	return m[key]
}

// Has reports whether the attribute is present with a non-blank value.
func (m Manifest) Has(key string) bool {
	return strings.TrimSpace(m[key]) != ""
}

// ParseManifest reads the main section of a JAR manifest. Lines longer than
// 72 bytes are continued on the next line with a single leading space.
func ParseManifest(r io.Reader) (Manifest, error) {
	m := make(Manifest)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var key string
	var value strings.Builder
	flush := func() {
		if key != "" {
			m[key] = value.String()
		}
		key = ""
		value.Reset()
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if line == "" {
			// main section ends at the first blank line
			break
		}

		if strings.HasPrefix(line, " ") {
			if key == "" {
				return nil, fmt.Errorf("manifest line %d: continuation without attribute", lineNo)
			}
			value.WriteString(line[1:])
			continue
		}

		flush()
		name, val, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("manifest line %d: malformed attribute %q", lineNo, line)
		}
		key = strings.TrimSpace(name)
		value.WriteString(strings.TrimPrefix(val, " "))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	flush()

	return m, nil
}
