// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package github

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/gizzahub/gzh-crawl-core/pkg/provider"
	"github.com/gizzahub/gzh-crawl-core/pkg/ratelimit"
)

// Discoverer implements provider.ProjectDiscoverer for GitHub
// organizations and users.
type Discoverer struct {
	client      *github.Client
	token       string
	rateLimiter *ratelimit.Limiter
	mu          sync.RWMutex
}

// NewDiscoverer creates a new GitHub discoverer.
func NewDiscoverer(token string) *Discoverer {
	d := &Discoverer{
		token:       token,
		rateLimiter: ratelimit.NewLimiter(5000), // GitHub default
	}
	d.initClient(token)
	return d
}

func (d *Discoverer) initClient(token string) {
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		d.client = github.NewClient(tc)
	} else {
		d.client = github.NewClient(nil)
	}
}

// SetToken sets the authentication token.
func (d *Discoverer) SetToken(token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = token
	d.initClient(token)
	return nil
}

// ValidateToken validates the current token.
func (d *Discoverer) ValidateToken(ctx context.Context) (bool, error) {
	if d.token == "" {
		return false, nil
	}
	_, _, err := d.client.Users.Get(ctx, "")
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Name returns the provider name.
func (d *Discoverer) Name() string {
	return "github"
}

// ListNamespaceProjects lists every repository visible under a GitHub
// organization or user namespace.
func (d *Discoverer) ListNamespaceProjects(ctx context.Context, namespace string) ([]*provider.SubProject, error) {
	var all []*provider.SubProject

	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		if err := d.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := d.client.Repositories.ListByOrg(ctx, namespace, opts)
		if err != nil {
			projects, userErr := d.listUserProjects(ctx, namespace)
			if userErr == nil {
				return projects, nil
			}
			return nil, fmt.Errorf("failed to list projects for namespace %s: %w", namespace, err)
		}
		d.rateLimiter.UpdateFromHeaders(resp.Response)

		for _, repo := range repos {
			all = append(all, convertGitHubRepo(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (d *Discoverer) listUserProjects(ctx context.Context, user string) ([]*provider.SubProject, error) {
	var all []*provider.SubProject

	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
		Type:        "all",
	}

	for {
		repos, resp, err := d.client.Repositories.List(ctx, user, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repos for user %s: %w", user, err)
		}

		for _, repo := range repos {
			all = append(all, convertGitHubRepo(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetProject fetches a single sub-project by namespace/name.
func (d *Discoverer) GetProject(ctx context.Context, namespace, name string) (*provider.SubProject, error) {
	repo, _, err := d.client.Repositories.Get(ctx, namespace, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s/%s: %w", namespace, name, err)
	}
	return convertGitHubRepo(repo), nil
}

// ListNamespaces lists organizations the authenticated user belongs to.
func (d *Discoverer) ListNamespaces(ctx context.Context) ([]*provider.Namespace, error) {
	var all []*provider.Namespace

	opts := &github.ListOptions{PerPage: 100}

	for {
		orgs, resp, err := d.client.Organizations.List(ctx, "", opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list namespaces: %w", err)
		}

		for _, org := range orgs {
			all = append(all, &provider.Namespace{
				Name:        org.GetLogin(),
				Description: org.GetDescription(),
				URL:         org.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetRateLimit returns current rate limit status.
func (d *Discoverer) GetRateLimit(ctx context.Context) (*provider.RateLimit, error) {
	limits, _, err := d.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit: %w", err)
	}

	core := limits.Core
	return &provider.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
		Used:      core.Limit - core.Remaining,
	}, nil
}

func convertGitHubRepo(repo *github.Repository) *provider.SubProject {
	return &provider.SubProject{
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		CloneURL:      repo.GetCloneURL(),
		SSHURL:        repo.GetSSHURL(),
		HTMLURL:       repo.GetHTMLURL(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		Archived:      repo.GetArchived(),
		Fork:          repo.GetFork(),
		Disabled:      repo.GetDisabled(),
		Language:      repo.GetLanguage(),
		Size:          repo.GetSize(),
		Topics:        repo.Topics,
		Visibility:    repo.GetVisibility(),
		CreatedAt:     repo.GetCreatedAt().Time,
		UpdatedAt:     repo.GetUpdatedAt().Time,
		PushedAt:      repo.GetPushedAt().Time,
	}
}
