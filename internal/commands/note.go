package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/session"
)

var noteCmd = &cobra.Command{
	Use:   "note <session-id>",
	Short: "Print a session's note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.backend.FetchOrCreateNote(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if n.Content == "" {
			fmt.Println("(empty note)")
			return nil
		}
		fmt.Println(n.Content)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <session-id> <message...>",
	Short: "Ask the AI about a session or have it edit the note",
	Long: `Run one chat turn against the session note. The AI either answers, in
which case the exchange is appended to the note, or rewrites the note.
Selecting entities is only available in 'relay open'.

Examples:
  relay ask 1f0c... "which hotel is closest to Shibuya?"
  relay ask 1f0c... "turn the hotel list into a table"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(cmd.Context(), args[0], func(ctx context.Context, ctrl *session.Controller) error {
			outcome, err := ctrl.Ask(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			fmt.Println(outcome.Reply)
			if outcome.Modified {
				fmt.Println("\n✓ Note updated.")
			}
			return nil
		})
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <session-id>",
	Short: "Summarize a session's entities into its note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(cmd.Context(), args[0], func(ctx context.Context, ctrl *session.Controller) error {
			outcome, err := ctrl.Summarize(ctx)
			if errors.Is(err, session.ErrNothingToSummarize) {
				fmt.Println("Nothing to summarize yet. Capture a screenshot first.")
				return nil
			}
			if outcome == nil {
				return err
			}
			writeSummary(os.Stdout, outcome)
			return err
		})
	},
}

var chatClearCmd = &cobra.Command{
	Use:   "chat-clear <session-id>",
	Short: "Delete a session's chat history",
	Long:  "Delete a session's chat history. The note, including transcript blocks already in it, is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.backend.GetSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := a.backend.ClearMessages(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("error clearing chat: %w", err)
		}
		fmt.Println("Chat history cleared.")
		return nil
	},
}

// writeSummary prints the block Summarize put into the note
func writeSummary(w io.Writer, outcome *session.SummaryOutcome) {
	if outcome.Markdown == "" {
		fmt.Fprintln(w, "The model had nothing to add.")
		return
	}
	fmt.Fprintln(w, outcome.Markdown)
	fmt.Fprintln(w, "\n✓ Added to the note.")
	if outcome.Entity != nil {
		fmt.Fprintf(w, "✓ Kept as entity %s\n", outcome.Entity.ID)
	}
}

// withController opens a session for a one-shot command and makes sure the
// note has been saved before returning
func withController(ctx context.Context, sessionID string, fn func(context.Context, *session.Controller) error) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl, err := session.Open(ctx, sessionID, a.deps())
	if err != nil {
		return err
	}
	go func() {
		for ev := range ctrl.Events() {
			if ev.Err != nil {
				a.log.Debug("session event", zap.Stringer("kind", ev.Kind), zap.Error(ev.Err))
			}
		}
	}()

	runErr := fn(ctx, ctrl)
	if err := ctrl.Close(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(runErr, fmt.Errorf("note not saved: %w", err))
	}
	return runErr
}
