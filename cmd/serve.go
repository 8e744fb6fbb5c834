package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr        string
	srvShutdownSec int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the exploration API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *cfg
		if srvAddr != "" {
			c.Server.Addr = srvAddr
		}
		if srvShutdownSec <= 0 {
			return fmt.Errorf("--shutdown-timeout must be > 0")
		}
		srv := server.New(&c)
		slog.Info("configuration loaded",
			"addr", c.Server.Addr,
			"max_upload_bytes", c.Server.MaxUploadBytes,
			"cache_size", c.Server.CacheSize,
			"max_datasets", c.Server.MaxDatasets,
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(srvShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().IntVar(&srvShutdownSec, "shutdown-timeout", 10, "seconds to wait for in-flight requests on shutdown")
}
