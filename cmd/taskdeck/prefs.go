package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/output"
)

var prefsCmd = &cobra.Command{
	Use:     "prefs",
	GroupID: "account",
	Short:   "Show or change preferences",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		prefs, err := a.coord.Preferences().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		output.FormatPreferences(os.Stdout, prefs)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update preferences",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		prefs, err := a.coord.Preferences().Get(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		changed := false
		if cmd.Flags().Changed("theme") {
			theme, _ := cmd.Flags().GetString("theme")
			if theme != "light" && theme != "dark" {
				fatalf("theme must be light or dark")
			}
			prefs.Theme = theme
			changed = true
		}
		if cmd.Flags().Changed("show-completed") {
			prefs.ShowCompletedTasks, _ = cmd.Flags().GetBool("show-completed")
			changed = true
		}
		if cmd.Flags().Changed("date-format") {
			format, _ := cmd.Flags().GetString("date-format")
			switch format {
			case "MM/DD/YYYY", "DD/MM/YYYY", "YYYY-MM-DD":
			default:
				fatalf("date-format must be MM/DD/YYYY, DD/MM/YYYY, or YYYY-MM-DD")
			}
			prefs.DateFormat = format
			changed = true
		}
		if !changed {
			fatalf("nothing to change (use --theme, --show-completed, or --date-format)")
		}

		if err := a.coord.UpdatePreferences(ctx, prefs); err != nil {
			a.finish()
			fatalf("%v", err)
		}
		a.finish()
		fmt.Printf("%s Preferences updated\n", output.RenderPass("✓"))
	},
}

func init() {
	prefsSetCmd.Flags().String("theme", "", "color theme (light or dark)")
	prefsSetCmd.Flags().Bool("show-completed", true, "show completed tasks in lists")
	prefsSetCmd.Flags().String("date-format", "", "date format (MM/DD/YYYY, DD/MM/YYYY, YYYY-MM-DD)")

	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
