package main

import (
	"fmt"
	"os"

	"mednotes/internal/config"
	"mednotes/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var cfg config.Config
	rootCommand := cobra.Command{
		Use:           "mednotes",
		Short:         "Medical study notes server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			_, err = logger.New(cfg.Env, cfg.LogLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}

	rootCommand.AddCommand(
		newServeCommand(&cfg),
		newMigrateCommand(&cfg),
	)
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mednotes: %+v\n", err)
		os.Exit(1)
	}
}
