package domain

import (
	"context"
	"time"
)

// DirectoryRepository はチャンネルとグループの一覧を取得するリポジトリインターフェース
type DirectoryRepository interface {
	Snapshot(ctx context.Context) (*Directory, error)
}

// Messenger はBotとしてメッセージを送信するインターフェース
type Messenger interface {
	SendToChannel(ctx context.Context, dest Destination, text string) error
	SendToGroup(ctx context.Context, dest Destination, text string) error
}

// JokeSource はジョークを1件返すインターフェース
type JokeSource interface {
	GetJoke(ctx context.Context) (*Joke, error)
}

// UsageRecorder はジョークの使用回数を記録するインターフェース
type UsageRecorder interface {
	RecordUsage(ctx context.Context, jokeID int64) error
}

// JokeRepository はジョークを登録するリポジトリインターフェース
type JokeRepository interface {
	Insert(ctx context.Context, text string) (bool, error)
}

// MarkerRepository は最終起動時刻などのマーカーを保存するリポジトリインターフェース
type MarkerRepository interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Put(ctx context.Context, name, val string) error
}

// Clock は現在時刻を返す
type Clock func() time.Time
