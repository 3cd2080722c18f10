package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"learnshell/internal/bootstrap"
	"learnshell/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "learnctl",
	Short:        "Ask the learning backend from the terminal",
	Long:         "learnctl runs the learnshell search workflows headlessly and can expose them to agents as MCP tools.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $LEARNSHELL_CONFIG or ~/.config/learnshell/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log workflow events to stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch Format(format) {
		case FormatYAML, FormatJSON:
			return nil
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
	}
}

// cliEnv is the per-invocation state shared by subcommands.
type cliEnv struct {
	format Format
	cfg    config.Config
	logger *slog.Logger
}

func loadEnv(_ *cobra.Command) (cliEnv, error) {
	format, _ := rootCmd.PersistentFlags().GetString("format")
	path, _ := rootCmd.PersistentFlags().GetString("config")
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cliEnv{}, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return cliEnv{
		format: Format(format),
		cfg:    cfg,
		logger: bootstrap.NewLogger(os.Stderr, level),
	}, nil
}
