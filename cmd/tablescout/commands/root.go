// Package commands implements the tablescout command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/profile"
)

// cfg is loaded from the environment before any subcommand runs.
var cfg *config.Config

var (
	logLevel     string
	logFormat    string
	profilesFile string
)

var rootCmd = &cobra.Command{
	Use:   "tablescout",
	Short: "tablescout pages through web tables and saves them as spreadsheets.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format = logFormat
		}
		if profilesFile != "" {
			cfg.Profiles.File = profilesFile
		}
		initLogger(cfg.Log, cmd.ErrOrStderr())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "json or text")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles", "", "YAML file with extra profiles")
}

// ExecuteContext runs the command line and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to w so
// stdout stays free for tables.
func initLogger(lc config.LogConfig, w io.Writer) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func loadRegistry() (*profile.Registry, error) {
	reg, err := profile.Load(cfg.Profiles.File)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return reg, nil
}
