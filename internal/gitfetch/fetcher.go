// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package gitfetch implements the Git Fetcher (C6): bringing a remote
// repository's objects to a local path, bounded by a top-level
// timeout, with any access credential injected as a bearer header
// rather than embedded in the URL.
package gitfetch

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitclient "github.com/go-git/go-git/v5/plumbing/transport/client"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gizzahub/gzh-crawl-core/internal/errors"
)

// DefaultTimeout is the top-level wall-clock bound for CloneOrUpdate;
// exceeding it yields a timeout-classed error.
const DefaultTimeout = 5 * time.Minute

// fetchTimeout bounds an update-in-place fetch before the fetcher
// falls back to a fresh clone.
const fetchTimeout = 3 * time.Minute

// Credential carries a decrypted access token for a single fetch. It
// is injected as an Authorization header, never into the remote URL.
type Credential struct {
	Token string
}

// Fetcher clones or updates repositories under a bounded timeout.
type Fetcher struct {
	Timeout time.Duration
}

// New returns a Fetcher using DefaultTimeout.
func New() *Fetcher {
	return &Fetcher{Timeout: DefaultTimeout}
}

// CloneOrUpdate implements the C6 algorithm: if targetPath already
// holds a repository, attempt an in-place fetch within a bounded wall
// time; on any failure (or if it doesn't exist yet) the target is
// removed and a fresh clone is attempted. The whole call is bounded by
// f.Timeout (or DefaultTimeout if unset).
func (f *Fetcher) CloneOrUpdate(ctx context.Context, url string, cred *Credential, targetPath string) (*git.Repository, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if repo, err := tryUpdate(ctx, cred, targetPath); err == nil {
		return repo, nil
	}

	if err := os.RemoveAll(targetPath); err != nil {
		return nil, errors.WrapWithMessage(err, "remove stale clone target")
	}
	return freshClone(ctx, url, cred, targetPath)
}

func tryUpdate(ctx context.Context, cred *Credential, targetPath string) (*git.Repository, error) {
	repo, err := git.PlainOpen(targetPath)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	err = repo.FetchContext(fetchCtx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       authMethod(cred),
		RefSpecs:   []config.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, err
	}
	return repo, nil
}

// freshClone performs the four-step clone: (1) create parent dirs,
// (2) build the header-based auth method, (3) clone with go-git's
// default options, which fetch every remote branch under
// refs/remotes/origin/, (4) return the opened handle.
func freshClone(ctx context.Context, url string, cred *Credential, targetPath string) (*git.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return nil, errors.WrapWithMessage(err, "create clone parent directory")
	}

	repo, err := git.PlainCloneContext(ctx, targetPath, false, &git.CloneOptions{
		URL:  url,
		Auth: authMethod(cred),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.ErrTimeout)
		}
		return nil, errors.WrapWithMessage(err, "clone")
	}
	return repo, nil
}

// AllowInsecureTLS installs an https transport that skips certificate
// validation, for self-signed internal Git hosts. Process-wide; call
// once during wiring when the TLS-override knob is set.
func AllowInsecureTLS() {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	gitclient.InstallProtocol("https", githttp.NewClient(httpClient))
}

// authMethod builds a bearer-header in-memory auth override; the
// credential never touches the clone/fetch URL itself.
func authMethod(cred *Credential) transport.AuthMethod {
	if cred == nil || cred.Token == "" {
		return nil
	}
	return &githttp.TokenAuth{Token: cred.Token}
}
