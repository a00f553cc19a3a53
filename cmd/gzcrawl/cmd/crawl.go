// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <id|name>",
	Short: "Fire a crawl for one repository and block until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	descriptor, token, err := a.Crawler.Begin(id)
	if err != nil {
		return err
	}
	if err := a.Crawler.Run(context.Background(), descriptor, token, ""); err != nil {
		return err
	}

	fmt.Printf("crawl completed for %s\n", descriptor.Name)
	return nil
}
