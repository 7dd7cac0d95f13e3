package commands

import (
	"github.com/spf13/cobra"

	"github.com/balkashynov/relay/internal/tui"
)

var openCmd = &cobra.Command{
	Use:   "open [session-id]",
	Short: "Open the interactive workspace",
	Long: `Open the interactive workspace. Without a session ID the session list
comes first.

In a session:
  tab           Switch between entities, note and chat
  space         Select an entity to scope the chat to it
  e             Edit the note (saved automatically)
  s             Summarize entities into the note
  enter         Send a chat message (chat pane)
  q / esc       Back`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{logToFile: true})
		if err != nil {
			return err
		}
		defer a.Close()

		opts := tui.Options{
			Backend:  a.backend,
			Analyzer: a.analyzer,
			Deps:     a.deps(),
		}
		if len(args) == 1 {
			return tui.RunSession(cmd.Context(), args[0], opts)
		}
		return tui.Run(cmd.Context(), opts)
	},
}
