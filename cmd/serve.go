package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabinsight/internal/api"
	"github.com/KaramelBytes/tabinsight/internal/metrics"
	"github.com/KaramelBytes/tabinsight/internal/profile"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the table store and profiler over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		srv := api.NewServer(st, profile.New(profileOptions(c)), metrics.NewManager(), log, api.Config{
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			RequestTimeout: time.Duration(c.RequestTimeoutSec) * time.Second,
			AllowedOrigins: c.AllowedOrigins,
		})
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
}
