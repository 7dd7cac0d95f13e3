package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/balkashynov/relay/internal/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	localMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Screenshot research sessions with an AI-edited note",
	Long: `relay turns screenshots into structured research sessions.
Each capture is read by a vision model, its entities are extracted and kept
alongside a markdown note that you and the AI edit together.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command, cancelling on SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, models.ErrAuthExpired) {
		return errors.New("session expired, sign in again")
	}
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("relay %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.relay/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&localMode, "local", false, "use the local database and model instead of the backend")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(chatClearCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(helpCmd)
	rootCmd.AddCommand(versionCmd)
}
