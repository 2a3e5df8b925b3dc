package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/Tattsum/norrisbot/internal/infrastructure/icndb"
	"github.com/Tattsum/norrisbot/internal/infrastructure/sqlite"
	"github.com/Tattsum/norrisbot/internal/logger"
)

func newSeedCommand() *cobra.Command {
	var (
		file    string
		fromAPI int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "ジョークストアにジョークを登録する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" && fromAPI <= 0 {
				return errors.New("--file または --from-api を指定してください")
			}

			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := loadConfig(envFile, false)
			if err != nil {
				return err
			}

			db, err := sqlite.Open(cfg.StorePath)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := sqlite.NewJokeRepository(db)
			ctx := cmd.Context()

			var added int
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				n, err := seedFromReader(ctx, repo, f)
				if err != nil {
					return err
				}
				added += n
			}
			if fromAPI > 0 {
				n, err := seedFromSource(ctx, repo, icndb.NewClient(cfg.JokeAPIURL, cfg.JokeTimeout), fromAPI)
				if err != nil {
					return err
				}
				added += n
			}

			logger.L.Info("ジョークを登録しました", slog.Int("added", added))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "1行1ジョークのテキストファイル")
	cmd.Flags().IntVar(&fromAPI, "from-api", 0, "リモートAPIから取得して登録する件数")
	return cmd
}

// seedFromReader は1行1件でジョークを登録し、新規に登録した件数を返す
// 空行と#で始まる行は無視する
func seedFromReader(ctx context.Context, repo domain.JokeRepository, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	added := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inserted, err := repo.Insert(ctx, line)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("入力の読み込みに失敗しました: %w", err)
	}
	return added, nil
}

// seedFromSource はsourceからcount回取得して登録する
// 取得に失敗した分は飛ばす
func seedFromSource(ctx context.Context, repo domain.JokeRepository, source domain.JokeSource, count int) (int, error) {
	added := 0
	for i := 0; i < count; i++ {
		joke, err := source.GetJoke(ctx)
		if err != nil {
			logger.L.Warn("ジョークの取得に失敗しました", slog.Any("error", err))
			continue
		}
		inserted, err := repo.Insert(ctx, joke.Text)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}
