package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/config"
)

var (
	flagConfig string
	flagAPIURL string
)

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Task manager with an AI assistant",
	Long: `taskdeck manages your to-do list from the terminal and keeps every
view in sync through a local cache that mirrors the server.

Commands talk to a taskdeck API server (run one with 'taskdeck serve').
Log in once with 'taskdeck login'; the token is cached under ~/.taskdeck.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $HOME/.taskdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "API server base URL (overrides config)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Task Commands:"},
		&cobra.Group{ID: "account", Title: "Account Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
	)
}

// loadConfig resolves configuration for the current invocation, applying the
// --api-url override.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}
	return cfg, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
