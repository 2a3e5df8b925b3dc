package domain

// User はSlackユーザーを表すドメインモデル
type User struct {
	ID   string
	Name string
}

// BotIdentity はBot自身のアカウント
// 起動時に一度だけ解決され、自己投稿の判定とトリガー名として使われる
type BotIdentity = User
