package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/friday-assist/friday/internal/dispatch"
)

var replyMessage string

var replyCmd = &cobra.Command{
	Use:   "reply <thread-id>",
	Short: "Reply to a mail thread and mark it read",
	Long: `I'll send your reply on the thread and mark it read - in
that order, so a failed send leaves the thread exactly as it was.

Provide the body with --message or pipe it on stdin:

  friday reply 18c2a4f --message "On it. Expect a draft by Friday."
  cat reply.txt | friday reply 18c2a4f

When run at a terminal I'll ask before sending.`,
	Args: cobra.ExactArgs(1),
	RunE: runReply,
}

func init() {
	replyCmd.Flags().StringVarP(&replyMessage, "message", "m", "", "Reply body")
	rootCmd.AddCommand(replyCmd)
}

func runReply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, _, err := newDispatcher(cfg)
	if err != nil {
		return err
	}

	body := replyMessage
	if body == "" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading reply body: %w", err)
		}
		body = strings.TrimSpace(string(raw))
	}
	if body == "" {
		return fmt.Errorf("nothing to send; provide --message or pipe a body on stdin")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reply on thread %s:\n\n%s\n\n", args[0], body)

	// Only prompt at a terminal; a piped body has already spoken for
	// itself and has no stdin left for a prompt anyway.
	if term.IsTerminal(int(os.Stdin.Fd())) && replyMessage != "" {
		if !confirm(os.Stdin, out, "Send this and mark the thread read?") {
			fmt.Fprintln(out, "Very well, nothing sent.")
			return nil
		}
	}

	res := d.Dispatch(cmd.Context(), dispatch.Request{
		Kind:     dispatch.SendReply,
		ThreadID: args[0],
		Body:     body,
	})
	printResult(out, res)
	return nil
}
