// Package scm checks out plugin sources.
package scm

import (
	"context"
	"strings"
)

// Client checks out connectionURL at ref into dir, replacing anything already
// there. An empty ref means the default branch.
type Client interface {
	Checkout(ctx context.Context, connectionURL, dir, ref string) error
}

const gitScheme = "scm:git:"

// CloneURL turns an scm:git: connection into a URL the git transport can
// fetch. The unauthenticated git protocol is no longer served by GitHub, so
// those URLs are fetched over https.
func CloneURL(connectionURL string) string {
	url := strings.TrimPrefix(strings.TrimSpace(connectionURL), gitScheme)
	if rest, ok := strings.CutPrefix(url, "git://github.com/"); ok {
		url = "https://github.com/" + rest
	}
	return url
}

// RepositoryName returns the last path element of a connection URL without
// the .git suffix.
func RepositoryName(connectionURL string) string {
	url := strings.TrimSuffix(CloneURL(connectionURL), "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return strings.TrimSuffix(url, ".git")
}
