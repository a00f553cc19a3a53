// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"time"
)

// SubProject represents one repository discovered under a GIT_MULTI
// namespace, from any Git hosting platform.
type SubProject struct {
	Name          string
	FullName      string
	CloneURL      string
	SSHURL        string
	HTMLURL       string
	Description   string
	DefaultBranch string
	Private       bool
	Archived      bool
	Fork          bool
	Disabled      bool
	Language      string
	Size          int
	Stars         int
	Topics        []string
	Visibility    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PushedAt      time.Time
}

// Namespace represents a group/organization/user namespace a
// discoverer can enumerate sub-projects under.
type Namespace struct {
	Name        string
	Description string
	URL         string
}

// RateLimit represents API rate limit information.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Used      int
}

// ListOptions is common pagination options.
type ListOptions struct {
	Page    int
	PerPage int
}

// ProjectDiscoverer enumerates sub-projects under a remote namespace
// for the GIT_MULTI repository kind.
type ProjectDiscoverer interface {
	// Name returns the provider name (github, gitlab, gitea).
	Name() string

	// ListNamespaceProjects lists every sub-project visible under
	// namespace, in the order the remote host returns them; the
	// orchestrator applies exclusions and preserves this order as the
	// GIT_MULTI resumption sequence.
	ListNamespaceProjects(ctx context.Context, namespace string) ([]*SubProject, error)

	// GetProject fetches a single sub-project by namespace/name.
	GetProject(ctx context.Context, namespace, name string) (*SubProject, error)

	// ListNamespaces lists namespaces the authenticated credential can see.
	ListNamespaces(ctx context.Context) ([]*Namespace, error)

	// GetRateLimit returns current rate limit status.
	GetRateLimit(ctx context.Context) (*RateLimit, error)
}

// AuthenticatedDiscoverer extends ProjectDiscoverer with credential
// management.
type AuthenticatedDiscoverer interface {
	ProjectDiscoverer

	SetToken(token string) error
	ValidateToken(ctx context.Context) (bool, error)
}
