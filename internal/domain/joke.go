package domain

// Joke は返信に使うジョークを表すドメインモデル
type Joke struct {
	ID         int64 // ストア由来のジョークのみ。リモート取得の場合は0
	Text       string
	UsageCount int
	Tracked    bool // 送信後に使用回数を記録する必要があるか
}
