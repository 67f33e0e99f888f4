package cmd

import (
	"github.com/KaramelBytes/chartloom-cli/internal/server"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ChartLoom HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = config().ListenAddr
		}
		return withStore(cmd.Context(), func(s store.Store) error {
			srv := server.New(s, loaderOptions(), logger)
			logger.Info("starting API", zap.String("addr", addr), zap.String("store", config().StoreKind))
			return srv.ListenAndServe(cmd.Context(), addr)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
}
