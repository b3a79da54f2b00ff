package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveShutdownGrace time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the timing decision API server",
	Long: `Run the HTTP API server, exposing the timing decision,
prediction, and feature endpoints until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Server == nil {
			fmt.Println("The API server requires a database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Server.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownGrace)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().DurationVar(&serveShutdownGrace, "shutdown-grace", 15*time.Second, "graceful shutdown timeout")

	rootCmd.AddCommand(serveCmd)
}
