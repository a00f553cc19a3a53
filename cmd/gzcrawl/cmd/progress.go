// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

var progressCmd = &cobra.Command{
	Use:   "progress [id|name]",
	Short: "Show the current progress snapshot for one repository, or every active crawl",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		id, err := a.resolveID(args[0])
		if err != nil {
			return err
		}
		snap, ok := a.Service.Progress(id)
		if !ok {
			fmt.Println("no snapshot for", args[0])
			return nil
		}
		printSnapshot(snap)
		return nil
	}

	active := a.Service.ActiveProgress()
	if len(active) == 0 {
		fmt.Println("no active crawls")
		return nil
	}
	for _, snap := range active {
		printSnapshot(snap)
	}
	return nil
}

func printSnapshot(snap model.ProgressSnapshot) {
	fmt.Printf("%s: %s  processed=%d indexed=%d progress=%.1f%%\n",
		snap.RepositoryID, snap.Status, snap.FilesProcessed, snap.FilesIndexed, snap.Percentage())
	if snap.CurrentFile != "" {
		fmt.Printf("  current file: %s\n", snap.CurrentFile)
	}
	if snap.SubProject != nil {
		fmt.Printf("  sub-project %s: %d/%d files (of %d total sub-projects)\n",
			snap.SubProject.CurrentSubProject, snap.SubProject.CurrentFilesDone, snap.SubProject.CurrentTotalFiles, snap.SubProject.TotalSubProjects)
	}
	if snap.Error != "" {
		fmt.Printf("  error: %s\n", snap.Error)
	}
}
