package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tabclean/internal"
	"tabclean/internal/config"
)

// env is shared by every subcommand once the root command has loaded configuration
type env struct {
	config *config.Config
	logger *internal.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "tabclean",
		Short:         "Declarative cleaning and train/test splitting of tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			e.config = cfg
			e.logger = internal.NewLoggerTo(os.Stderr, internal.ParseLogLevel(cfg.Log.Level), cfg.Log.Format == "console")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")

	rootCmd.AddCommand(
		newCleanCmd(e),
		newBatchCmd(e),
		newProfileCmd(e),
		newRunsCmd(e),
		newPresetsCmd(),
	)
	return rootCmd
}

// runContext bounds a command by the configured timeout
func (e *env) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if e.config.Pipeline.Timeout > 0 {
		return context.WithTimeout(parent, e.config.Pipeline.Timeout)
	}
	return context.WithCancel(parent)
}
