package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Tattsum/norrisbot/internal/domain"
)

// JokeRepository はjokesテーブルからジョークを取得するリポジトリ
// 使用回数の少ないものから選び、同数の中ではランダムに選ぶ
type JokeRepository struct {
	db *sql.DB
}

// NewJokeRepository は新しいJokeRepositoryを作成する
func NewJokeRepository(db *sql.DB) *JokeRepository {
	return &JokeRepository{
		db: db,
	}
}

// GetJoke は最も使用回数の少ないジョークを1件返す
func (r *JokeRepository) GetJoke(ctx context.Context) (*domain.Joke, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, joke, used FROM jokes ORDER BY used ASC, RANDOM() LIMIT 1`)

	joke := &domain.Joke{Tracked: true}
	if err := row.Scan(&joke.ID, &joke.Text, &joke.UsageCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ストアにジョークがありません", domain.ErrJokeFetch)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrJokeFetch, err)
	}
	return joke, nil
}

// RecordUsage は指定したジョークの使用回数を1増やす
// 加算はストア側で行うため同時に呼ばれても取りこぼさない
func (r *JokeRepository) RecordUsage(ctx context.Context, jokeID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE jokes SET used = used + 1 WHERE id = ?`, jokeID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUsageRecord, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUsageRecord, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: ジョーク #%d が見つかりません", domain.ErrUsageRecord, jokeID)
	}
	return nil
}

// Insert はジョークを登録する。登録済みの場合はfalseを返す
func (r *JokeRepository) Insert(ctx context.Context, text string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO jokes (joke, used) VALUES (?, 0)`, text)
	if err != nil {
		return false, fmt.Errorf("ジョークの登録に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ジョークの登録に失敗しました: %w", err)
	}
	return n > 0, nil
}

