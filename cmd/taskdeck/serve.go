package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/taskdeck/taskdeck/internal/agent"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/live"
	"github.com/taskdeck/taskdeck/internal/mail"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "server",
	Short:   "Run the taskdeck API server",
	Long: `Run the taskdeck HTTP API plus the WebSocket live hub.

The server stores data in a local SQLite database and serves:
  - /api/auth/...   registration, login, email verification
  - /api/...        tasks, categories, stats, preferences
  - /chat/...       AI assistant conversations

The live hub broadcasts task and stats updates on a second port so open
clients stay current. Configure via ~/.taskdeck/config.yaml or TASKDECK_*
environment variables (TASKDECK_AUTH_SECRET, TASKDECK_AGENT_API_KEY, ...).`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, v, err := config.Load(flagConfig)
		if err != nil {
			fatalf("%v", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		if cfg.Auth.Secret == "" {
			fatalf("auth.secret is required (set TASKDECK_AUTH_SECRET)")
		}

		logger := newServerLogger(cfg.Log)

		db, err := sqlite.Open(cfg.Server.DBPath)
		if err != nil {
			fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchemaContext(context.Background()); err != nil {
			fatalf("failed to initialize schema: %v", err)
		}

		ttl, err := time.ParseDuration(cfg.Auth.TokenTTL)
		if err != nil {
			fatalf("invalid auth.token_ttl %q: %v", cfg.Auth.TokenTTL, err)
		}
		authMgr := auth.NewManager(cfg.Auth.Secret, ttl)

		var chatAgent server.ChatAgent
		if cfg.Agent.APIKey != "" {
			chatAgent = agent.New(db, cfg.Agent.APIKey,
				agent.WithModel(cfg.Agent.Model),
				agent.WithLogger(logger),
			)
		} else {
			logger.Printf("agent.api_key not set, chat is disabled")
		}

		hub := live.NewHub(&live.Config{
			Port:   cfg.Server.LivePort,
			Logger: logger,
		})
		if err := hub.Start(); err != nil {
			fatalf("failed to start live hub: %v", err)
		}

		var sender mail.Sender
		if cfg.Mail.Host != "" {
			sender = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From, cfg.Mail.Username, cfg.Mail.Password)
		} else {
			sender = &mail.LogSender{Logger: logger}
		}

		srv := server.New(server.Config{
			Store:            db,
			Auth:             authMgr,
			Agent:            chatAgent,
			Hub:              hub,
			Mail:             sender,
			Logger:           logger,
			CategorySeedPath: cfg.Server.CategorySeedPath,
			VerifyBaseURL:    cfg.Server.VerifyBaseURL,
		})

		config.Watch(v, func(*config.Config) {
			logger.Printf("config file changed, restart to apply server settings")
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Run(cfg.Server.Addr)
		}()

		fmt.Printf("API server:  http://localhost%s\n", cfg.Server.Addr)
		fmt.Printf("Live hub:    ws://localhost:%d/ws\n", cfg.Server.LivePort)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "Error: server stopped: %v\n", err)
		}

		if err := hub.Stop(); err != nil {
			logger.Printf("live hub shutdown: %v", err)
		}
	},
}

// newServerLogger logs to stderr, and additionally to a rotated file when
// log.path is configured.
func newServerLogger(cfg config.LogConfig) *log.Logger {
	if cfg.Path == "" {
		return log.New(os.Stderr, "[taskdeck] ", log.LstdFlags)
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return log.New(io.MultiWriter(os.Stderr, rotated), "[taskdeck] ", log.LstdFlags)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
