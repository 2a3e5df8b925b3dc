package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tattsum/norrisbot/internal/config"
	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/Tattsum/norrisbot/internal/infrastructure/icndb"
	slackinfra "github.com/Tattsum/norrisbot/internal/infrastructure/slack"
	"github.com/Tattsum/norrisbot/internal/infrastructure/sqlite"
	"github.com/Tattsum/norrisbot/internal/logger"
	"github.com/Tattsum/norrisbot/internal/metrics"
	"github.com/Tattsum/norrisbot/internal/service"
)

func newRunCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Botを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := loadConfig(envFile, debug)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				logger.L.Error("設定が不正です", slog.Any("error", err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runBot(ctx, cfg); err != nil {
				logger.L.Error("Botを終了します", slog.Any("error", err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "デバッグログを有効にする")
	return cmd
}

// loadConfig は設定を読み込み、グローバルロガーを初期化する
func loadConfig(envFile string, debug bool) (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func runBot(ctx context.Context, cfg config.Config) error {
	log := logger.L
	client := slackinfra.NewClient(cfg.Token, cfg.AppToken)

	identity, err := slackinfra.NewUserRepository(client).Self(ctx, cfg.Name)
	if err != nil {
		return err
	}
	log.Info("Botユーザーを取得しました", slog.String("id", identity.ID), slog.String("name", identity.Name))

	directory := slackinfra.NewChannelRepository(client, cfg.DirectoryTTL)
	messenger := slackinfra.NewMessageRepository(client)

	var (
		jokes     domain.JokeSource
		onConnect func(ctx context.Context)
	)
	if cfg.UsesStore() {
		db, err := sqlite.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := sqlite.Migrate(log, cfg.StorePath, "up"); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}

		jokes = sqlite.NewJokeRepository(db)
		greeter := service.NewGreeter(cfg.Name, sqlite.NewMarkerRepository(db), directory, messenger, nil)
		onConnect = func(ctx context.Context) {
			if err := greeter.Greet(ctx); err != nil {
				log.Error("起動マーカーの更新に失敗しました", slog.Any("error", err))
			}
		}
	} else {
		jokes = icndb.NewClient(cfg.JokeAPIURL, cfg.JokeTimeout)
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("メトリクスの公開に失敗しました", slog.Any("error", err))
			}
		}()
	}

	dispatcher := service.NewDispatcher(identity, directory, jokes, messenger,
		service.WithTrigger(cfg.Trigger),
		service.WithRateLimit(cfg.ReplyRate, cfg.ReplyBurst),
		service.WithMetrics(m),
		service.WithLogger(log),
	)

	session := slackinfra.NewSession(client, directory, log, onConnect)
	err = session.Run(ctx, dispatcher.OnMessage)
	dispatcher.Wait()
	return err
}
