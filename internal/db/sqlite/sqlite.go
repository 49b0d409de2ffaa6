// Package sqlite открывает файловую базу SQLite — альтернативу PostgreSQL
// для маленьких чатов и локального запуска (STORAGE_DRIVER=sqlite).
// Схема та же, что и в postgres, с поправкой на типы SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// Open открывает (или создаёт) базу по пути path и применяет миграции.
// WAL + busy_timeout: апдейты обрабатываются параллельно, писатель должен ждать, а не падать.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
	}
	// SQLite допускает одного писателя; один коннект снимает SQLITE_BUSY под нагрузкой
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("path", path).Info("Подключение к SQLite установлено")
	return db, nil
}

// Migrate применяет все миграции по порядку, пропуская уже применённые.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	for _, m := range migrations {
		applied, err := execMigration(ctx, db, m.version, m.sql)
		if err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		if applied {
			log.Infof("Миграция %d применена", m.version)
		}
	}
	return nil
}

func execMigration(ctx context.Context, db *sql.DB, version int, stmt string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES (?)", version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ошибка фиксации миграции %d: %w", version, err)
	}
	return true, nil
}

var migrations = []struct {
	version int
	sql     string
}{
	{1, migration001Members},
	{2, migration002Karma},
}

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    user_id INTEGER PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(username COLLATE NOCASE);
`

// last_adjusted хранится как unix-время в наносекундах; 0 — «никогда».
var migration002Karma = `
CREATE TABLE IF NOT EXISTS karma (
    user_id INTEGER PRIMARY KEY,
    karma INTEGER NOT NULL DEFAULT 0,
    last_adjusted INTEGER NOT NULL DEFAULT 0
);
`
