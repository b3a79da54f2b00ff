package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sendflowr/pulse/pkg/observability"
)

var (
	verbose bool
	logCfg  = observability.DefaultLogConfig()
	logger  *slog.Logger
)

type commandStartKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - Minute-level send-time decision engine",
	Long: `Pulse decides the optimal minute to send a message to each
recipient, based on their individual engagement history.

It resolves identities across channels, learns a weekly engagement
curve per recipient, and emits auditable timing decisions with
latency-compensated trigger times.

Configuration comes from the environment (PULSE_ENV, DATABASE_URL,
REDIS_URL, RABBITMQ_URL) or a .env file in the working directory.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logCfg.Level = observability.LogLevelDebug
		}
		logger = observability.NewLogger(logCfg)

		// Each invocation gets a correlation id; service logs inherit
		// it through the command context.
		ctx := observability.WithCorrelationID(cmd.Context(), "")
		ctx = context.WithValue(ctx, commandStartKey{}, time.Now())
		cmd.SetContext(ctx)
		logger.InfoContext(ctx, "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		started, ok := cmd.Context().Value(commandStartKey{}).(time.Time)
		if !ok {
			return
		}
		logger.InfoContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level output")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogging sets the base log configuration; --verbose lowers its
// level to debug at command start.
func SetLogging(cfg observability.LogConfig) {
	logCfg = cfg
}
