package cmd

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"crawl", "cancel", "resume", "cleanup-abandoned", "schedule", "progress", "repo", "discover", "watch"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("rootCmd missing subcommand %q", name)
		}
	}
}

func TestRepoCommandRegistersSubcommands(t *testing.T) {
	want := []string{"add", "list", "delete"}
	got := make(map[string]bool)
	for _, c := range repoCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("repoCmd missing subcommand %q", name)
		}
	}
}
