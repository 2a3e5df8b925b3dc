// Package config は環境変数（および任意の.envファイル）から設定を読み込む
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ジョークの取得元
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// DefaultEnvFile は既定で読み込む.envファイル
const DefaultEnvFile = ".env"

// Config はアプリケーション全体の設定
type Config struct {
	Token    string `env:"BOT_API_KEY"`
	AppToken string `env:"BOT_APP_TOKEN"`
	Name     string `env:"BOT_NAME"     envDefault:"norrisbot"`
	Trigger  string `env:"BOT_TRIGGER"  envDefault:"chuck norris"`

	StorePath   string        `env:"BOT_DB_PATH"      envDefault:"data/norrisbot.db"`
	JokeSource  string        `env:"BOT_JOKE_SOURCE"  envDefault:"local"`
	JokeAPIURL  string        `env:"BOT_JOKE_API_URL" envDefault:"https://api.icndb.com"`
	JokeTimeout time.Duration `env:"BOT_JOKE_TIMEOUT" envDefault:"5s"`

	ReplyRate    float64       `env:"BOT_REPLY_RATE"    envDefault:"0"`
	ReplyBurst   int           `env:"BOT_REPLY_BURST"   envDefault:"5"`
	DirectoryTTL time.Duration `env:"BOT_DIRECTORY_TTL" envDefault:"5m"`

	Log         LogConfig
	MetricsAddr string `env:"METRICS_ADDR"`
}

// LogConfig はログレベルと形式
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load は.envファイルを読み込んだ後、環境変数から設定を作成する
// .envファイルが存在しない場合はエラーにしない
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%s の読み込みに失敗しました: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("環境変数の解析に失敗しました: %w", err)
	}
	cfg.JokeSource = strings.ToLower(cfg.JokeSource)
	return cfg, nil
}

// UsesStore はローカルストアを使う設定かどうかを返す
func (c Config) UsesStore() bool {
	return c.JokeSource == SourceLocal
}

// Validate はBot起動に必要な設定が揃っているか検証する
func (c Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("BOT_API_KEY が設定されていません"))
	}
	if c.AppToken == "" {
		errs = append(errs, errors.New("BOT_APP_TOKEN が設定されていません"))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("BOT_NAME が空です"))
	}
	switch c.JokeSource {
	case SourceLocal:
		if c.StorePath == "" {
			errs = append(errs, errors.New("BOT_DB_PATH が空です"))
		}
	case SourceRemote:
		if c.JokeAPIURL == "" {
			errs = append(errs, errors.New("BOT_JOKE_API_URL が空です"))
		}
	default:
		errs = append(errs, fmt.Errorf("BOT_JOKE_SOURCE が不正です: %q (local または remote)", c.JokeSource))
	}
	if c.JokeTimeout <= 0 {
		errs = append(errs, errors.New("BOT_JOKE_TIMEOUT は正の値である必要があります"))
	}
	return errors.Join(errs...)
}
