// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

var (
	scheduleCron           string
	scheduleFrequencyHours int
	scheduleTimeoutMinutes int
	scheduleWatchEnabled   bool
	scheduleDisable        bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <id|name>",
	Short: "Replace a repository's cron schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "5-field or 6-field cron expression (takes precedence over --frequency-hours)")
	scheduleCmd.Flags().IntVar(&scheduleFrequencyHours, "frequency-hours", 0, "crawl-every-N-hours convenience, lowered to a cron expression")
	scheduleCmd.Flags().IntVar(&scheduleTimeoutMinutes, "timeout-minutes", 60, "per-crawl timeout in minutes")
	scheduleCmd.Flags().BoolVar(&scheduleWatchEnabled, "watch", false, "additionally trigger on filesystem change (FILESYSTEM kind only)")
	scheduleCmd.Flags().BoolVar(&scheduleDisable, "disable", false, "disable automatic scheduling for this repository")
}

func runSchedule(c *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	sched := model.ScheduleSubRecord{
		AutoEnabled:    !scheduleDisable,
		CronExpression: scheduleCron,
		FrequencyHours: scheduleFrequencyHours,
		TimeoutMinutes: scheduleTimeoutMinutes,
		WatchEnabled:   scheduleWatchEnabled,
	}

	updated, err := a.Service.SetSchedule(id, sched)
	if err != nil {
		return err
	}

	if updated.Schedule.AutoEnabled {
		fmt.Printf("scheduled %s (cron %q); next_fire is computed by the running worker\n", updated.Name, updated.Schedule.EffectiveCron())
	} else {
		fmt.Printf("scheduling disabled for %s\n", updated.Name)
	}
	return nil
}
