package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/chat"
	"github.com/taskdeck/taskdeck/internal/output"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	GroupID: "tasks",
	Short:   "Talk to the AI assistant",
	Long: `Open an interactive chat with the assistant. The assistant can list,
create, complete, and delete your tasks and categories; any changes it makes
show up in the other commands immediately.

Commands inside the chat:
  /new         start a fresh conversation
  /list        list past conversations
  /open <id>   continue a past conversation
  /quit        leave the chat`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fatalf("%v", err)
		}
		ctx := context.Background()

		session := chat.NewSession(a.store, a.api, a.coord, a.session.User.ID,
			chat.WithLogger(log.New(io.Discard, "", 0)),
		)

		if id, _ := cmd.Flags().GetInt("conversation"); id > 0 {
			session.Select(id)
			printHistory(ctx, session)
		}

		fmt.Println(output.RenderMuted("Chatting with the assistant. /quit to leave."))
		runChatLoop(ctx, session)
	},
}

func runChatLoop(ctx context.Context, session *chat.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(output.RenderAccent("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !handleChatCommand(ctx, session, line) {
				return
			}
			continue
		}

		resp, err := session.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", output.RenderError("✗"), err)
			continue
		}
		for _, call := range resp.ToolCalls {
			fmt.Println(output.RenderMuted("  [" + call.Name + "]"))
		}
		fmt.Printf("%s %s\n", output.RenderHeader("assistant>"), resp.Response)
	}
}

// handleChatCommand runs a /command; it returns false when the loop should
// exit.
func handleChatCommand(ctx context.Context, session *chat.Session, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return false
	case "/new":
		conv, err := session.StartConversation(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", output.RenderError("✗"), err)
			return true
		}
		fmt.Println(output.RenderMuted(fmt.Sprintf("Started conversation %d", conv.ID)))
	case "/list":
		convs, err := session.Conversations().Get(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", output.RenderError("✗"), err)
			return true
		}
		if len(convs) == 0 {
			fmt.Println(output.RenderMuted("No conversations yet."))
			return true
		}
		for _, c := range convs {
			summary := c.Summary
			if summary == "" {
				summary = "(no summary)"
			}
			fmt.Printf("%4d  %s\n", c.ID, summary)
		}
	case "/open":
		if len(fields) != 2 {
			fmt.Println(output.RenderMuted("usage: /open <id>"))
			return true
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil || id <= 0 {
			fmt.Println(output.RenderMuted("usage: /open <id>"))
			return true
		}
		session.Select(id)
		printHistory(ctx, session)
	default:
		fmt.Println(output.RenderMuted("unknown command " + fields[0]))
	}
	return true
}

func printHistory(ctx context.Context, session *chat.Session) {
	msgs := session.Messages()
	if msgs == nil {
		return
	}
	history, err := msgs.Get(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", output.RenderError("✗"), err)
		return
	}
	for _, m := range history {
		switch m.Role {
		case "user":
			fmt.Printf("%s %s\n", output.RenderAccent("you>"), m.Content)
		case "assistant":
			fmt.Printf("%s %s\n", output.RenderHeader("assistant>"), m.Content)
		}
	}
}

func init() {
	chatCmd.Flags().Int("conversation", 0, "continue an existing conversation")
	rootCmd.AddCommand(chatCmd)
}
