package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/api"
	"github.com/balkashynov/relay/internal/config"
	"github.com/balkashynov/relay/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay backend",
	Long: `Run the HTTP backend: the AI endpoints under /api and the session data
under /v1. Listens on server.addr; set server.token to require a bearer token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store, svc, err := openLocal(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		if cfg.Server.Token == "" {
			log.Warn("server.token is empty, /v1 is open to anyone who can reach it")
		}
		fmt.Printf("relay backend listening on %s\n", cfg.Server.Addr)

		srv := api.New(store, svc, cfg.Server.Token, log)
		if err := srv.ListenAndServe(cmd.Context(), cfg.Server.Addr); err != nil {
			log.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}
