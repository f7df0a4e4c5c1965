package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskdeck/internal/analytics"
)

func newStatsCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show productivity statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.boot(cmd.Context())
			if _, err := a.requireUser(); err != nil {
				return err
			}

			stats, err := a.api.Statistics(cmd.Context(), analytics.Period(period))
			if err != nil {
				return err
			}

			fmt.Printf("Period: %s\n", period)
			fmt.Printf("Total tasks:      %d\n", stats.TotalTasks)
			fmt.Printf("Completed:        %d\n", stats.CompletedTasks)
			fmt.Printf("Pending:          %d\n", stats.PendingTasks)
			fmt.Printf("In progress:      %d\n", stats.InProgressTasks)
			fmt.Printf("Overdue:          %d\n", stats.OverdueTasks)
			fmt.Printf("Completion rate:  %.1f%%\n", stats.CompletionRate)
			if stats.TotalTimeSpent > 0 {
				fmt.Printf("Time spent:       %d min\n", stats.TotalTimeSpent)
			}

			breakdown, err := a.api.PriorityDistribution(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println("\nBy priority:")
			for _, entry := range breakdown {
				if entry.Total == 0 {
					continue
				}
				fmt.Printf("  %-8s %d/%d done (%.1f%%)\n", entry.Priority, entry.Completed, entry.Total, entry.CompletionRate)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "week", "reporting period (week, month, year)")
	return cmd
}
