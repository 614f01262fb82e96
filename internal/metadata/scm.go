package metadata

import (
	"fmt"
	"strings"
)

// GitScheme is the only version-control scheme the tester can check out.
const GitScheme = "scm:git:"

var githubRewrites = []struct{ from, to string }{
	{"ssh://git@github.com/", "git://github.com/"},
	{"git@github.com:", "git://github.com/"},
}

// NormalizeSCM canonicalizes a connection string to the scm:git: form. Bare
// URLs are taken to be git; any other scm provider is rejected.
func NormalizeSCM(conn string) (string, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return "", fmt.Errorf("empty scm connection")
	}

	url := conn
	if strings.HasPrefix(conn, "scm:") {
		provider, rest, ok := strings.Cut(strings.TrimPrefix(conn, "scm:"), ":")
		if !ok {
			return "", fmt.Errorf("malformed scm connection %q", conn)
		}
		if provider != "git" {
			return "", fmt.Errorf("unsupported scm provider %q in %q", provider, conn)
		}
		url = rest
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("scm connection %q has no url", conn)
	}

	for _, rw := range githubRewrites {
		if strings.HasPrefix(url, rw.from) {
			url = rw.to + strings.TrimPrefix(url, rw.from)
			break
		}
	}

	return GitScheme + url, nil
}
