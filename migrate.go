package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Tattsum/norrisbot/internal/infrastructure/sqlite"
	"github.com/Tattsum/norrisbot/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "ジョークストアのスキーマを適用する",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) > 0 {
				command = args[0]
			}

			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := loadConfig(envFile, false)
			if err != nil {
				return err
			}

			if command == "up" {
				if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
					return err
				}
				if err := sqlite.Create(cfg.StorePath); err != nil {
					return err
				}
			}
			return sqlite.Migrate(logger.L, cfg.StorePath, command)
		},
	}
}
