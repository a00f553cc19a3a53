// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gizzahub/gzh-crawl-core/internal/errors"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <id|name>",
	Short: "Cancel an active crawl",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	if err := a.Service.CancelCrawl(id); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return fmt.Errorf("no crawl registered for %s", args[0])
		}
		return err
	}

	fmt.Printf("cancellation requested for %s\n", args[0])
	return nil
}
