// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package gitlab

import (
	"testing"
)

func TestExtractHostFromURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		wantHost string
	}{
		{
			name:     "standard HTTPS URL",
			baseURL:  "https://gitlab.example.org",
			wantHost: "gitlab.example.org",
		},
		{
			name:     "HTTPS with port (API endpoint)",
			baseURL:  "https://gitlab.example.org:8443",
			wantHost: "gitlab.example.org",
		},
		{
			name:     "HTTPS with API path",
			baseURL:  "https://gitlab.com/api/v4",
			wantHost: "gitlab.com",
		},
		{
			name:     "empty URL",
			baseURL:  "",
			wantHost: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractHostFromURL(tt.baseURL); got != tt.wantHost {
				t.Errorf("extractHostFromURL(%q) = %q, want %q", tt.baseURL, got, tt.wantHost)
			}
		})
	}
}

func TestBuildSSHURL(t *testing.T) {
	tests := []struct {
		name        string
		sshHost     string
		sshPort     int
		projectPath string
		want        string
	}{
		{
			name:        "custom port uses ssh scheme",
			sshHost:     "gitlab.example.org",
			sshPort:     2222,
			projectPath: "infra/search/crawler",
			want:        "ssh://git@gitlab.example.org:2222/infra/search/crawler.git",
		},
		{
			name:        "existing .git suffix is not doubled",
			sshHost:     "gitlab.example.org",
			sshPort:     2222,
			projectPath: "infra/search/crawler.git",
			want:        "ssh://git@gitlab.example.org:2222/infra/search/crawler.git",
		},
		{
			name:        "port 22 uses scp-like form",
			sshHost:     "gitlab.com",
			sshPort:     22,
			projectPath: "group/project",
			want:        "git@gitlab.com:group/project.git",
		},
		{
			name:        "unset port falls back to scp-like form",
			sshHost:     "gitlab.com",
			sshPort:     0,
			projectPath: "group/project",
			want:        "git@gitlab.com:group/project.git",
		},
		{
			name:        "empty host yields no URL",
			sshHost:     "",
			sshPort:     2222,
			projectPath: "group/project",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Discoverer{sshHost: tt.sshHost, sshPort: tt.sshPort}
			if got := d.buildSSHURL(tt.projectPath); got != tt.want {
				t.Errorf("buildSSHURL(%q) = %q, want %q", tt.projectPath, got, tt.want)
			}
		})
	}
}
