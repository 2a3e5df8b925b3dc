package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MarkerRepository はinfoテーブルの名前付きマーカーを扱うリポジトリ
type MarkerRepository struct {
	db *sql.DB
}

// NewMarkerRepository は新しいMarkerRepositoryを作成する
func NewMarkerRepository(db *sql.DB) *MarkerRepository {
	return &MarkerRepository{
		db: db,
	}
}

// Get はマーカーの値を返す。存在しない場合はfalse
func (r *MarkerRepository) Get(ctx context.Context, name string) (string, bool, error) {
	var val string
	err := r.db.QueryRowContext(ctx, `SELECT val FROM info WHERE name = ? LIMIT 1`, name).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("マーカー %q の取得に失敗しました: %w", name, err)
	}
	return val, true, nil
}

// Put はマーカーを登録し、既にあれば値を更新する
func (r *MarkerRepository) Put(ctx context.Context, name, val string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO info (name, val) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET val = excluded.val`,
		name, val)
	if err != nil {
		return fmt.Errorf("マーカー %q の保存に失敗しました: %w", name, err)
	}
	return nil
}
