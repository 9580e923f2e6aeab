package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/output"
)

var todayCmd = &cobra.Command{
	Use:     "today",
	GroupID: "tasks",
	Short:   "Show tasks created today",
	Long: `Show tasks created today (UTC). The list is capped while the count
reflects every task from today, so "Today (7)" above five lines means two
more exist.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		today, err := a.coord.Today().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		output.FormatToday(os.Stdout, today, a.dateFormat(ctx))
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "tasks",
	Short:   "Show task completion stats",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		stats, err := a.coord.Stats().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		output.FormatStats(os.Stdout, stats)

		byCategory, _ := cmd.Flags().GetBool("by-category")
		if byCategory {
			catStats, err := a.coord.CategoryStats().Get(ctx)
			if err != nil {
				fatalf("%v", err)
			}
			cats, err := a.coord.Categories().Get(ctx)
			if err != nil {
				fatalf("%v", err)
			}
			os.Stdout.WriteString("\n")
			output.FormatCategories(os.Stdout, cats, catStats)
		}
	},
}

func init() {
	statsCmd.Flags().Bool("by-category", false, "include the per-category breakdown")
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(statsCmd)
}
