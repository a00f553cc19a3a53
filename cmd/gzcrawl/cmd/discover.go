// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gizzahub/gzh-crawl-core/internal/crawlapi"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

var (
	discoverProvider string
	discoverToken    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover <namespace>",
	Short: "Discover sub-projects under a remote namespace and bulk-create a GIT_MULTI descriptor",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().StringVar(&discoverProvider, "provider", "github", "discovery provider: github or gitlab")
	discoverCmd.Flags().StringVar(&discoverToken, "token", os.Getenv("GZCRAWL_DISCOVERY_TOKEN"), "access token for the remote host")
	_ = discoverCmd.MarkFlagRequired("token")
}

func runDiscover(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	namespace := args[0]
	discoverer, err := crawlapi.DiscovererFor(a.Crawler.Discoverers, discoverProvider)
	if err != nil {
		return err
	}

	projects, err := a.Service.Discover(context.Background(), discoverer, namespace, discoverToken)
	if err != nil {
		return err
	}

	d, err := a.Service.Create(model.RepositoryDescriptor{
		Name:              namespace,
		Kind:              model.KindGitMulti,
		Origin:            discoverProvider,
		Credential:        discoverToken,
		NamespaceSelector: namespace,
		Enabled:           true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created %s (%s) with %d discovered sub-project(s)\n", d.Name, d.ID, len(projects))
	for _, p := range projects {
		fmt.Printf("  - %s\n", p.FullName)
	}
	return nil
}
