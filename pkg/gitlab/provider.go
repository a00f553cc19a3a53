// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/gizzahub/gzh-crawl-core/pkg/provider"
	"github.com/gizzahub/gzh-crawl-core/pkg/ratelimit"
)

// Discoverer implements provider.ProjectDiscoverer for GitLab groups
// and users.
type Discoverer struct {
	client      *gitlab.Client
	token       string
	baseURL     string
	sshHost     string // SSH hostname (e.g., "gitlab.polypia.net")
	sshPort     int    // SSH port (e.g., 2224, 0 means default 22)
	rateLimiter *ratelimit.Limiter
	mu          sync.RWMutex
}

// DiscovererOptions configures the GitLab Discoverer.
type DiscovererOptions struct {
	Token   string
	BaseURL string // API endpoint (http/https only)
	SSHPort int    // Custom SSH port (0 = default 22)
}

// NewDiscoverer creates a new GitLab discoverer.
func NewDiscoverer(token, baseURL string) (*Discoverer, error) {
	return NewDiscovererWithOptions(DiscovererOptions{
		Token:   token,
		BaseURL: baseURL,
	})
}

// NewDiscovererWithOptions creates a new GitLab discoverer with custom options.
func NewDiscovererWithOptions(opts DiscovererOptions) (*Discoverer, error) {
	d := &Discoverer{
		token:       opts.Token,
		baseURL:     opts.BaseURL,
		sshPort:     opts.SSHPort,
		rateLimiter: ratelimit.NewLimiter(2000), // GitLab default
	}

	if opts.BaseURL != "" {
		d.sshHost = extractHostFromURL(opts.BaseURL)
	}

	if err := d.initClient(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Discoverer) initClient() error {
	var client *gitlab.Client
	var err error

	if d.baseURL != "" {
		client, err = gitlab.NewClient(d.token, gitlab.WithBaseURL(d.baseURL))
	} else {
		client, err = gitlab.NewClient(d.token)
	}

	if err != nil {
		return fmt.Errorf("failed to create GitLab client: %w", err)
	}

	d.client = client
	return nil
}

// SetToken sets the authentication token.
func (d *Discoverer) SetToken(token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = token
	return d.initClient()
}

// ValidateToken validates the current token.
func (d *Discoverer) ValidateToken(ctx context.Context) (bool, error) {
	if d.token == "" {
		return false, nil
	}
	_, _, err := d.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Name returns the provider name.
func (d *Discoverer) Name() string {
	return "gitlab"
}

// ListNamespaceProjects lists every project visible under a GitLab
// group namespace, including subgroups.
func (d *Discoverer) ListNamespaceProjects(ctx context.Context, namespace string) ([]*provider.SubProject, error) {
	var all []*provider.SubProject

	opts := &gitlab.ListGroupProjectsOptions{
		ListOptions:      gitlab.ListOptions{PerPage: 100},
		IncludeSubGroups: gitlab.Ptr(true),
	}

	for {
		if err := d.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		projects, resp, err := d.client.Groups.ListGroupProjects(namespace, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list projects for namespace %s: %w", namespace, err)
		}

		for _, project := range projects {
			all = append(all, d.convertGitLabProject(project))
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
	projectPath := fmt.Sprintf("%s/%s", namespace, name)
	project, _, err := d.client.Projects.GetProject(projectPath, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", projectPath, err)
	}

	return d.convertGitLabProject(project), nil
}

// ListNamespaces lists groups the authenticated user belongs to.
func (d *Discoverer) ListNamespaces(ctx context.Context) ([]*provider.Namespace, error) {
	var all []*provider.Namespace

	opts := &gitlab.ListGroupsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	for {
		groups, resp, err := d.client.Groups.ListGroups(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list namespaces: %w", err)
		}

		for _, group := range groups {
			all = append(all, &provider.Namespace{
				Name:        group.Path,
				Description: group.Description,
				URL:         group.WebURL,
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
//
// GitLab doesn't expose a dedicated rate limit API, so this reports
// the locally tracked estimate instead.
func (d *Discoverer) GetRateLimit(ctx context.Context) (*provider.RateLimit, error) {
	remaining, limit, resetTime := d.rateLimiter.Status()
	return &provider.RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     resetTime,
		Used:      limit - remaining,
	}, nil
}

func (d *Discoverer) convertGitLabProject(project *gitlab.Project) *provider.SubProject {
	var createdAt, updatedAt, pushedAt time.Time
	if project.CreatedAt != nil {
		createdAt = *project.CreatedAt
	}
	if project.LastActivityAt != nil {
		updatedAt = *project.LastActivityAt
		pushedAt = *project.LastActivityAt
	}

	sshURL := project.SSHURLToRepo
	if d.sshPort > 0 && d.sshHost != "" {
		sshURL = d.buildSSHURL(project.PathWithNamespace)
	}

	return &provider.SubProject{
		Name:          project.Path,
		FullName:      project.PathWithNamespace,
		CloneURL:      project.HTTPURLToRepo,
		SSHURL:        sshURL,
		HTMLURL:       project.WebURL,
		Description:   project.Description,
		DefaultBranch: project.DefaultBranch,
		Private:       project.Visibility != gitlab.PublicVisibility,
		Archived:      project.Archived,
		Fork:          project.ForkedFromProject != nil,
		Disabled:      false,
		Language:      "",
		Size:          0,
		Topics:        project.Topics,
		Visibility:    string(project.Visibility),
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		PushedAt:      pushedAt,
	}
}

// extractHostFromURL extracts hostname from API base URL.
// Base URL should be the API endpoint (http/https).
// Examples:
//   - "https://gitlab.polypia.net" -> "gitlab.polypia.net"
//   - "https://gitlab.polypia.net:8443" -> "gitlab.polypia.net"
//   - "https://gitlab.com/api/v4" -> "gitlab.com"
func extractHostFromURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// buildSSHURL constructs SSH URL for a project.
// Format: ssh://git@host:port/path/to/repo.git
func (d *Discoverer) buildSSHURL(projectPath string) string {
	if d.sshHost == "" {
		return ""
	}

	if !strings.HasSuffix(projectPath, ".git") {
		projectPath = projectPath + ".git"
	}

	if d.sshPort > 0 && d.sshPort != 22 {
		return fmt.Sprintf("ssh://git@%s:%d/%s", d.sshHost, d.sshPort, projectPath)
	}

	return fmt.Sprintf("git@%s:%s", d.sshHost, projectPath)
}
