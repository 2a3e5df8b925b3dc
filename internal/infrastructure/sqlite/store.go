// Package sqlite はSQLiteファイルに保存されたジョークと起動マーカーを扱う
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/Tattsum/norrisbot/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open は既存のデータベースファイルを開く
// ファイルが存在しない、または読めない場合はErrStoreUnavailableを返す
func Open(path string) (*sql.DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: データベースパス %q が存在しないか読み込めません: %v", domain.ErrStoreUnavailable, path, err)
	}
	f.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	// 使用回数の更新が同時に走ってもSQLITE_BUSYにならないよう接続を1本に絞る
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

// Create はデータベースファイルがなければ空のファイルを作成する
func Create(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("データベースファイルの作成に失敗しました: %w", err)
	}
	return f.Close()
}

// Migrate は埋め込みのマイグレーションを適用またはロールバックする
// 対応コマンド: "up", "down", "version"
func Migrate(logger *slog.Logger, path, command string) error {
	switch command {
	case "up", "down", "version":
	default:
		return fmt.Errorf("不明なmigrateコマンドです: %s (up, down, version)", command)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("マイグレーションソースの作成に失敗しました: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("マイグレーションの初期化に失敗しました: %w", err)
	}
	defer m.Close()

	m.Log = &migrateLogger{logger: logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		ver, dirty, _ := m.Version()
		logger.Info("マイグレーション完了", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("すべてのマイグレーションをロールバックしました")

	case "version":
		ver, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		logger.Info("現在のバージョン", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	}

	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
