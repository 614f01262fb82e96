package scm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
)

// GoGit checks out sources with the pure Go git implementation.
type GoGit struct {
	Auth   transport.AuthMethod
	Logger *log.Logger
}

var _ Client = (*GoGit)(nil)

// NewGoGit creates a client. auth may be nil for anonymous access.
func NewGoGit(auth transport.AuthMethod, logger *log.Logger) *GoGit {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &GoGit{Auth: auth, Logger: logger.With("component", "scm")}
}

// Checkout clones the repository into a clean dir and checks out ref as a
// tag, branch, or revision.
func (g *GoGit) Checkout(ctx context.Context, connectionURL, dir, ref string) error {
	url := CloneURL(connectionURL)
	logger := g.Logger.With("url", url, "ref", ref, "dir", dir)

	if err := os.RemoveAll(dir); err != nil {
		return errors.NewSourceUnavailableError(connectionURL, fmt.Errorf("clean checkout directory: %w", err))
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return errors.NewSourceUnavailableError(connectionURL, fmt.Errorf("create checkout parent: %w", err))
	}

	logger.Info("Cloning sources")
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  url,
		Auth: g.Auth,
		Tags: git.AllTags,
	})
	if err != nil {
		return errors.NewSourceUnavailableError(connectionURL, fmt.Errorf("clone: %w", err))
	}

	if ref == "" {
		return nil
	}

	hash, err := resolve(repo, ref)
	if err != nil {
		return errors.NewSourceUnavailableError(connectionURL, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.NewSourceUnavailableError(connectionURL, fmt.Errorf("open worktree: %w", err))
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return errors.NewSourceUnavailableError(connectionURL, fmt.Errorf("checkout %s: %w", ref, err))
	}

	logger.Debug("Checked out revision", "hash", hash.String())
	return nil
}

// resolve tries ref as given, then as a tag, then as a remote branch.
func resolve(repo *git.Repository, ref string) (*plumbing.Hash, error) {
	candidates := []string{
		ref,
		"refs/tags/" + ref,
		"refs/remotes/origin/" + ref,
	}

	var lastErr error
	for _, c := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(c))
		if err == nil {
			return hash, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("resolve %s: %w", ref, lastErr)
}

// SSHAuth loads a private key for the git user. Host keys are checked against
// knownHostsFile when given, otherwise against the user's known_hosts files.
func SSHAuth(keyFile, passphrase, knownHostsFile string) (transport.AuthMethod, error) {
	auth, err := gitssh.NewPublicKeysFromFile("git", keyFile, passphrase)
	if err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("cannot load ssh key %s: %v", keyFile, err))
	}

	var callback ssh.HostKeyCallback
	if knownHostsFile != "" {
		callback, err = knownhosts.New(knownHostsFile)
	} else {
		callback, err = gitssh.NewKnownHostsCallback()
	}
	if err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("cannot load known hosts: %v", err))
	}
	auth.HostKeyCallback = callback

	return auth, nil
}
