// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repository descriptors",
}

func init() {
	rootCmd.AddCommand(repoCmd)
}

var (
	repoAddKind              string
	repoAddOrigin            string
	repoAddDefaultBranchHint string
	repoAddCredential        string
	repoAddNamespace         string
	repoAddExcludeExact      string
	repoAddExcludeWildcard   string
	repoAddDisabled          bool
)

var repoAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a repository descriptor",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoAdd,
}

func init() {
	repoCmd.AddCommand(repoAddCmd)
	repoAddCmd.Flags().StringVar(&repoAddKind, "kind", "FILESYSTEM", "FILESYSTEM, GIT, or GIT_MULTI")
	repoAddCmd.Flags().StringVar(&repoAddOrigin, "origin", "", "URL (GIT/GIT_MULTI) or filesystem path")
	repoAddCmd.Flags().StringVar(&repoAddDefaultBranchHint, "default-branch", "", "branch used when enumeration is empty")
	repoAddCmd.Flags().StringVar(&repoAddCredential, "credential", "", "opaque encrypted access credential")
	repoAddCmd.Flags().StringVar(&repoAddNamespace, "namespace", "", "GIT_MULTI namespace selector")
	repoAddCmd.Flags().StringVar(&repoAddExcludeExact, "exclude-exact", "", "comma-joined exact sub-project names to exclude")
	repoAddCmd.Flags().StringVar(&repoAddExcludeWildcard, "exclude-wildcard", "", "comma-joined wildcard patterns to exclude")
	repoAddCmd.Flags().BoolVar(&repoAddDisabled, "disabled", false, "create the descriptor disabled")
	_ = repoAddCmd.MarkFlagRequired("origin")
}

func runRepoAdd(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	d := model.RepositoryDescriptor{
		Name:              args[0],
		Kind:              model.RepositoryKind(repoAddKind),
		Origin:            repoAddOrigin,
		DefaultBranchHint: repoAddDefaultBranchHint,
		Enabled:           !repoAddDisabled,
		Credential:        repoAddCredential,
		NamespaceSelector: repoAddNamespace,
		ExcludeExact:      repoAddExcludeExact,
		ExcludeWildcard:   repoAddExcludeWildcard,
	}

	created, err := a.Service.Create(d)
	if err != nil {
		return err
	}

	fmt.Printf("created %s (%s)\n", created.Name, created.ID)
	return nil
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every repository descriptor",
	Args:  cobra.NoArgs,
	RunE:  runRepoList,
}

func init() {
	repoCmd.AddCommand(repoListCmd)
}

func runRepoList(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tENABLED\tSTATE\tORIGIN")
	for _, d := range a.Store.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n", d.ID, d.Name, d.Kind, d.Enabled, d.State, d.Origin)
	}
	return w.Flush()
}

var repoDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a repository descriptor and purge its indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoDelete,
}

func init() {
	repoCmd.AddCommand(repoDeleteCmd)
}

func runRepoDelete(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	if err := a.Service.Delete(id); err != nil {
		return err
	}

	fmt.Printf("deleted %s\n", args[0])
	return nil
}
