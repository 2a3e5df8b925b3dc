package domain

import "errors"

var (
	// ErrConnection はリアルタイムセッションを確立できない（致命的）
	ErrConnection = errors.New("slack接続エラー")
	// ErrStoreUnavailable はジョークストアが存在しないか読めない（致命的）
	ErrStoreUnavailable = errors.New("ジョークストアを利用できません")
	// ErrJokeFetch はジョークの取得に失敗した
	ErrJokeFetch = errors.New("ジョーク取得エラー")
	// ErrDestinationNotFound は返信先がディレクトリに存在しない
	ErrDestinationNotFound = errors.New("返信先が見つかりません")
	// ErrUsageRecord は使用回数の記録に失敗した
	ErrUsageRecord = errors.New("使用回数の記録に失敗しました")
)
