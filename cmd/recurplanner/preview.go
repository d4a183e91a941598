package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recurring-planner/internal/recurrence"
)

func previewCmd() *cobra.Command {
	var (
		rule   string
		anchor string
		from   string
		to     string
		before int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the dates a recurrence rule produces in a window",
		Long: `Print the dates a recurrence rule produces in a window, without touching
the database.

Examples:
  recurplanner preview --rule "weekly days=mon,fri" --anchor 2024-01-01 --from 2024-01-01 --to 2024-01-14
  recurplanner preview --rule "monthly day=31" --anchor 2024-01-31 --to 2024-06-30
  recurplanner preview --rule "daily count=5" --anchor 2024-01-01 --from 2024-01-03 --to 2024-01-31 --before 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := recurrence.ParseText(rule)
			if err != nil {
				return err
			}
			anchorDate, err := recurrence.ParseDate(anchor)
			if err != nil {
				return fmt.Errorf("anchor: %w", err)
			}
			windowStart := anchorDate
			if from != "" {
				if windowStart, err = recurrence.ParseDate(from); err != nil {
					return fmt.Errorf("from: %w", err)
				}
			}
			windowEnd := recurrence.AddDays(windowStart, 30)
			if to != "" {
				if windowEnd, err = recurrence.ParseDate(to); err != nil {
					return fmt.Errorf("to: %w", err)
				}
			}

			dates, err := recurrence.DatesInWindow(pattern, anchorDate, windowStart, windowEnd, before)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule: %s\n", pattern)
			for _, d := range dates {
				fmt.Fprintf(out, "%s %s\n", d.Format(recurrence.DateLayout), recurrence.WeekdayOf(d))
			}
			fmt.Fprintf(out, "%d date(s)\n", len(dates))
			return nil
		},
	}
	cmd.Flags().StringVarP(&rule, "rule", "r", "", "recurrence rule, e.g. \"weekly/2 days=mon,fri\"")
	cmd.Flags().StringVarP(&anchor, "anchor", "a", time.Now().Format(recurrence.DateLayout), "anchor date YYYY-MM-DD")
	cmd.Flags().StringVar(&from, "from", "", "window start (default anchor)")
	cmd.Flags().StringVar(&to, "to", "", "window end (default window start + 30 days)")
	cmd.Flags().IntVar(&before, "before", 0, "occurrences already produced before the window")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}
