package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON HTTP API",
	Long: `Serve cleaning, previews and settings over HTTP until interrupted.

With the file and redis backends, settings changed by other cleanlink
processes (or, for the file backend, by hand) are picked up without a
restart.

Endpoints:
  GET    /healthz
  GET    /v1/categories
  POST   /v1/clean                      {"url": "..."} or {"urls": [...]}
  GET    /v1/preview?url=...
  GET    /v1/stats
  GET    /v1/settings
  PUT    /v1/settings/categories/:name
  DELETE /v1/settings/categories/:name
  POST   /v1/settings/params            {"param": "..."}
  DELETE /v1/settings/params/:param
  POST   /v1/settings/reset`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8484)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, closeStore, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	following, err := mgr.Follow(ctx)
	if err != nil {
		logger.Warn("settings changes from other processes will not be seen", "backend", cfg.Store.Backend, "error", err)
	} else if following {
		logger.Debug("following settings changes", "backend", cfg.Store.Backend)
	}

	logInfo("Listening on http://%s", cfg.Server.Addr)
	return server.New(mgr).Run(ctx, cfg.Server.Addr)
}
