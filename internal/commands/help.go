package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for relay",
	Long:  `Display detailed help for all relay commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp()
	},
}

func showCustomHelp() {
	fmt.Print(`
██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██████╔╝█████╗  ██║     ███████║ ╚████╔╝
██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝
██║  ██║███████╗███████╗██║  ██║   ██║
╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝

relay - screenshots in, research notes out

COMMANDS:

  serve                   Run the backend (AI endpoints and session data)
    --addr                Listen address (default server.addr)

  ls                      List sessions
    -c, --category        Only one category

  new [name]              Create a session (wizard without a name)
    -d, --description     What the session is for
    -c, --category        Session category

    Inline syntax:
      @category     Set the category
      by:owner      Set the owner

    Example:
      relay new "Tokyo trip @trip-planning"

  rename <id> <name>      Rename a session
  rm <id>                 Delete a session and everything in it
    -y, --yes             Skip the confirmation

  capture <id> <image>    Add a screenshot and extract its entities
    -n, --new             Create a session for it (capture --new <image>)

  note <id>               Print the note
  ask <id> <message>      Ask the AI, or have it edit the note
  summarize <id>          Summarize the entities into the note
  chat-clear <id>         Delete the chat history

  entities <id>           List extracted entities
    -a, --all             Include removed ones
    --yaml                YAML output
  forget <entity-id>      Remove an entity

  open [id]               Interactive workspace
    Quick actions:
      tab           Switch pane
      space         Select entity for the chat
      e             Edit the note
      s             Summarize
      enter         Send chat message
      esc/q         Back

  mcp                     MCP server over stdio for AI assistants
  version                 Print version information
  help                    Show this help

GLOBAL FLAGS:
  --config <file>         Config file (default ~/.relay/config.yaml)
  --local                 Use the local database and model, no backend

`)
}
