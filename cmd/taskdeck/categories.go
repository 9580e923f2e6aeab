package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/output"
)

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	GroupID: "tasks",
	Short:   "List and manage categories",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		cats, err := a.coord.Categories().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		counts, err := a.coord.CategoryStats().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		output.FormatCategories(os.Stdout, cats, counts)
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		icon, _ := cmd.Flags().GetString("icon")
		cat, err := a.coord.AddCategory(ctx, args[0], icon)
		if err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		fmt.Printf("%s Created category %d: %s %s\n", output.RenderPass("✓"), cat.ID, cat.Icon, cat.Name)
	},
}

var categoriesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a category (its tasks become uncategorized)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			fatalf("invalid category id %q", args[0])
		}
		if err := a.coord.DeleteCategory(ctx, id); err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		fmt.Printf("%s Category %d deleted\n", output.RenderPass("✓"), id)
	},
}

func init() {
	categoriesAddCmd.Flags().String("icon", "📌", "category icon")

	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoriesRmCmd)
	rootCmd.AddCommand(categoriesCmd)
}
