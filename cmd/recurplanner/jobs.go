package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Materialize recurring task instances once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("horizon") {
				horizon = a.cfg.RefreshHorizonDays
			}
			summary, err := a.materializer.GenerateDailyRecurringTasks(cmdContext(cmd), horizon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tasks: %d, created: %d, failed: %d, paused: %d\n",
				summary.Tasks, summary.Created, summary.Failed, summary.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon", 0, "days ahead to materialize (default REFRESH_HORIZON_DAYS)")
	return cmd
}

func cleanupCmd() *cobra.Command {
	var instanceDays, historyDays int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge resolved instances and old history once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("instances") {
				instanceDays = a.cfg.InstanceRetentionDays
			}
			if !cmd.Flags().Changed("history") {
				historyDays = a.cfg.HistoryRetentionDays
			}
			ctx := cmdContext(cmd)
			instances, err := a.retention.CleanupOldInstances(ctx, instanceDays)
			if err != nil {
				return err
			}
			history, err := a.retention.CleanupHistory(ctx, historyDays)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted instances: %d, deleted history records: %d\n", instances, history)
			return nil
		},
	}
	cmd.Flags().IntVar(&instanceDays, "instances", 0, "instance retention in days (default INSTANCE_RETENTION_DAYS)")
	cmd.Flags().IntVar(&historyDays, "history", 0, "history retention in days (default HISTORY_RETENTION_DAYS)")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
