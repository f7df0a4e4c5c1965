package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskdeck/internal/categories"
)

func newCategoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage categories",
	}

	cmd.AddCommand(
		newCategoryListCommand(),
		newCategoryAddCommand(),
		newCategoryRemoveCommand(),
	)
	return cmd
}

func newCategoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
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

			list, err := a.api.ListCategories(cmd.Context())
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Println("No categories.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOLOR\tICON")
			for _, category := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(category.ID), category.Name, category.Color, category.Icon)
			}
			return w.Flush()
		},
	}
}

func newCategoryAddCommand() *cobra.Command {
	var color, icon string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
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

			created, err := a.api.CreateCategory(cmd.Context(), categories.CreateInput{
				Name:  args[0],
				Color: color,
				Icon:  icon,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added %s (%s)\n", created.Name, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "#RRGGBB accent color")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func newCategoryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a category (tasks are kept and detached)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid category id")
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

			if err := a.api.DeleteCategory(cmd.Context(), categoryID); err != nil {
				return err
			}

			fmt.Println("Deleted.")
			return nil
		},
	}
}
