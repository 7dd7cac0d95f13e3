package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/parser"
	"github.com/balkashynov/relay/internal/tui"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List sessions",
	Long:    "List sessions, most recently updated first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.backend.ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("error fetching sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions yet. Use 'relay new \"name\"' or 'relay capture --new <image>' to start one.")
			return nil
		}

		category, _ := cmd.Flags().GetString("category")

		fmt.Printf("%-36s  %-32s  %-16s  %s\n", "ID", "NAME", "CATEGORY", "UPDATED")
		fmt.Println(strings.Repeat("-", 100))
		for _, s := range sessions {
			if category != "" && s.Category != category {
				continue
			}
			cat := s.Category
			if cat == "" {
				cat = "-"
			}
			fmt.Printf("%-36s  %-32s  %-16s  %s\n",
				s.ID,
				parser.Truncate(s.Name, 32),
				parser.Truncate(cat, 16),
				humanize.Time(s.UpdatedAt))
		}
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a session",
	Long: `Create a session. Without a name the interactive wizard opens.

Inline syntax:
  @category   - one of ` + strings.Join(ai.Categories, ", ") + `
  by:owner    - who the session belongs to

Example:
  relay new "Tokyo trip @trip-planning"`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive := len(args) == 0
		a, err := newApp(appOptions{logToFile: interactive})
		if err != nil {
			return err
		}
		defer a.Close()

		if interactive {
			created, err := tui.RunAddSession(cmd.Context(), a.backend, "")
			if err != nil {
				return err
			}
			if created != nil {
				fmt.Printf("✓ Created session %q - ID: %s\n", created.Name, created.ID)
			}
			return nil
		}

		parsed := parser.ParseSessionTitle(strings.Join(args, " "), ai.Categories)
		if len(parsed.Errors) > 0 {
			return errors.New(strings.Join(parsed.Errors, "; "))
		}

		req := models.CreateSessionRequest{
			Owner:    parsed.Owner,
			Name:     parsed.Name,
			Category: parsed.Category,
		}
		req.Description, _ = cmd.Flags().GetString("description")
		if category, _ := cmd.Flags().GetString("category"); category != "" {
			req.Category = category
		}

		s, err := a.backend.CreateSession(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}
		fmt.Printf("Created session %s: %s\n", s.ID, s.Name)
		if s.Category != "" {
			fmt.Printf("  Category: %s\n", s.Category)
		}
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.backend.RenameSession(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("error renaming session: %w", err)
		}
		fmt.Printf("Renamed session %s to %q\n", s.ID, s.Name)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "rm <session-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a session and everything in it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.backend.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fmt.Printf("Delete %q with its screenshots, entities, note and chat? [y/N] ", s.Name)
			var answer string
			_, _ = fmt.Scanln(&answer)
			if answer != "y" && answer != "Y" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := a.backend.DeleteSession(cmd.Context(), s.ID); err != nil {
			return fmt.Errorf("error deleting session: %w", err)
		}
		fmt.Printf("Deleted session %q\n", s.Name)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("category", "c", "", "Only show sessions in this category")

	newCmd.Flags().StringP("description", "d", "", "What the session is for")
	newCmd.Flags().StringP("category", "c", "", "Session category")

	removeCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
