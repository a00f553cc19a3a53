// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupTimeout time.Duration

var cleanupAbandonedCmd = &cobra.Command{
	Use:   "cleanup-abandoned",
	Short: "Transition crawls stuck IN_PROGRESS past the timeout to FAILED",
	Args:  cobra.NoArgs,
	RunE:  runCleanupAbandoned,
}

func init() {
	rootCmd.AddCommand(cleanupAbandonedCmd)
	cleanupAbandonedCmd.Flags().DurationVar(&cleanupTimeout, "timeout", 60*time.Minute, "age past which an IN_PROGRESS crawl is considered abandoned")
}

func runCleanupAbandoned(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	swept, err := a.Crawler.CleanupAbandoned(cleanupTimeout)
	if err != nil {
		return err
	}

	fmt.Printf("swept %d abandoned crawl(s)\n", swept)
	return nil
}
