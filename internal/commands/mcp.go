package commands

import (
	"github.com/spf13/cobra"

	"github.com/balkashynov/relay/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve relay sessions to AI assistants over MCP (stdio)",
	Long: `Run an MCP server on stdin/stdout exposing the tools list_sessions,
get_note, list_entities and ask_note. Logs go to ~/.relay/relay.log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{logToFile: true})
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcpserver.NewServer(a.backend, a.analyzer, a.deps(), version)
		return srv.Run(cmd.Context())
	},
}
