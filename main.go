package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Tattsum/norrisbot/internal/config"
)

// Version はビルド時に -ldflags "-X main.Version=..." で上書きされる
var Version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "norrisbot",
		Short:         "Chuck Norrisのジョークで返信するSlack Bot",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "読み込む.envファイル（存在しなければ無視）")

	cmd.AddCommand(
		newRunCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示する",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("norrisbot " + Version)
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
