// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package gitlab implements provider.ProjectDiscoverer for GitLab.
//
// This package provides GitLab-specific API integration for sub-project
// discovery under group namespaces. Projects owned by a user namespace
// are not listed.
//
// # Features
//
//   - Sub-project listing (group namespaces)
//   - Subgroup support
//   - Custom SSH port configuration
//   - Self-hosted instance support
//   - Token validation
//
// # Usage
//
//	discoverer, err := gitlab.NewDiscoverer(token, "https://gitlab.example.com")
//	projects, err := discoverer.ListNamespaceProjects(ctx, "mygroup")
package gitlab
