package main

import (
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskdeck/internal/tasks"
)

func newTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	cmd.AddCommand(
		newTaskListCommand(),
		newTaskAddCommand(),
		newTaskDoneCommand(),
		newTaskRemoveCommand(),
	)
	return cmd
}

func newTaskListCommand() *cobra.Command {
	var status, priority, search string
	var today, overdue bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
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

			var list []tasks.Task
			switch {
			case today:
				list, err = a.api.TodayTasks(cmd.Context())
			case overdue:
				list, err = a.api.OverdueTasks(cmd.Context())
			default:
				query := url.Values{}
				if status != "" {
					query.Set("status", status)
				}
				if priority != "" {
					query.Set("priority", priority)
				}
				if search != "" {
					query.Set("search", search)
				}
				list, err = a.api.ListTasks(cmd.Context(), query)
			}
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Println("No tasks.")
				return nil
			}

			printTasks(list)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, in_progress, completed, archived)")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&search, "search", "", "search in title and description")
	cmd.Flags().BoolVar(&today, "today", false, "show tasks due today")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "show overdue tasks")
	return cmd
}

func newTaskAddCommand() *cobra.Command {
	var priority, due, categoryID string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
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

			payload := map[string]any{"title": args[0]}
			if priority != "" {
				payload["priority"] = priority
			}
			if due != "" {
				dueDate, err := parseDue(due)
				if err != nil {
					return err
				}
				payload["dueDate"] = dueDate.Format(time.RFC3339)
			}
			if categoryID != "" {
				if _, err := uuid.Parse(categoryID); err != nil {
					return fmt.Errorf("invalid category id")
				}
				payload["categoryId"] = categoryID
			}

			created, err := a.api.CreateTask(cmd.Context(), payload)
			if err != nil {
				return err
			}

			fmt.Printf("Added %s (%s)\n", created.Title, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&priority, "priority", "", "task priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	return cmd
}

func newTaskDoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between completed and pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.boot(cmd.Context())
			if _, err := a.requireUser(); err != nil {
				return err
			}

			toggled, err := a.api.ToggleTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}

			fmt.Printf("%s is now %s\n", toggled.Title, toggled.Status)
			return nil
		},
	}
}

func newTaskRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			a.boot(cmd.Context())
			if _, err := a.requireUser(); err != nil {
				return err
			}

			if err := a.api.DeleteTask(cmd.Context(), taskID); err != nil {
				return err
			}

			fmt.Println("Deleted.")
			return nil
		},
	}
}

func printTasks(list []tasks.Task) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
	for _, task := range list {
		due := "-"
		if task.DueDate != nil {
			due = task.DueDate.Local().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(task.ID), task.Status, task.Priority, due, task.Title)
	}
	_ = w.Flush()
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func parseDue(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q; use YYYY-MM-DD or RFC 3339", value)
	}
	// A bare date means end of that day.
	return parsed.Add(24*time.Hour - time.Second), nil
}
