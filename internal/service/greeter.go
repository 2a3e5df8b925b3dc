package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tattsum/norrisbot/internal/domain"
	"github.com/Tattsum/norrisbot/internal/logger"
)

// LastRunMarker は最終起動時刻を保存するマーカー名
const LastRunMarker = "lastrun"

// WelcomeText は初回起動時に送る挨拶文を返す
func WelcomeText(name string) string {
	return "Hi guys, roundhouse-kick anyone?" +
		"\n I can tell jokes, but very honest ones. Just say `Chuck Norris` or `" + name + "` to invoke me!"
}

// Greeter は初回起動時に一度だけ挨拶を送るサービス
type Greeter struct {
	name      string
	markers   domain.MarkerRepository
	directory domain.DirectoryRepository
	messenger domain.Messenger
	now       domain.Clock
	logger    *slog.Logger
}

// NewGreeter は新しいGreeterサービスを作成する
func NewGreeter(name string, markers domain.MarkerRepository, directory domain.DirectoryRepository, messenger domain.Messenger, now domain.Clock) *Greeter {
	if now == nil {
		now = time.Now
	}
	return &Greeter{
		name:      name,
		markers:   markers,
		directory: directory,
		messenger: messenger,
		now:       now,
		logger:    logger.L,
	}
}

// Greet は最終起動マーカーを確認し、初回なら挨拶を送ってマーカーを登録する
// 2回目以降はマーカーを更新するだけ
func (g *Greeter) Greet(ctx context.Context) error {
	_, found, err := g.markers.Get(ctx, LastRunMarker)
	if err != nil {
		return err
	}

	if !found {
		g.welcome(ctx)
	}

	if err := g.markers.Put(ctx, LastRunMarker, g.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return nil
}

// welcome は最初のチャンネル（なければ最初のグループ）へ挨拶を送る
// 送信に失敗しても起動は続ける
func (g *Greeter) welcome(ctx context.Context) {
	directory, err := g.directory.Snapshot(ctx)
	if err != nil {
		g.logger.Error("ディレクトリの取得に失敗したため挨拶を送りません", slog.Any("error", err))
		return
	}

	dest, ok := directory.First()
	if !ok {
		g.logger.Warn("参加しているチャンネルもグループもないため挨拶を送りません")
		return
	}

	if err := send(ctx, g.messenger, dest, WelcomeText(g.name)); err != nil {
		g.logger.Error("挨拶の送信に失敗しました", slog.String("destination", dest.Name), slog.Any("error", fmt.Errorf("%s: %w", dest.Kind, err)))
		return
	}
	g.logger.Info("初回起動の挨拶を送信しました", slog.String("destination", dest.Name))
}
