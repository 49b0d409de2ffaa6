package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"serotonyl.ru/karma-bot/internal/common"
)

// SQLiteRepository — реализация Store поверх database/sql + go-sqlite3.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (user_id, username, first_name, last_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET username = excluded.username,
		    first_name = excluded.first_name,
		    last_name = excluded.last_name,
		    updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, m.UserID, m.Username, m.FirstName, m.LastName); err != nil {
		return common.WrapStorage("members.upsert", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	query := `
		SELECT user_id, username, first_name, last_name, joined_at, updated_at
		FROM members
		WHERE user_id = ?
	`
	m, err := scanSQLiteMember(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("участник (user_id=%d): %w", userID, common.ErrUserNotFound)
		}
		return nil, common.WrapStorage("members.get_by_id", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*Member, error) {
	query := `
		SELECT user_id, username, first_name, last_name, joined_at, updated_at
		FROM members
		WHERE username = ? COLLATE NOCASE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	m, err := scanSQLiteMember(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("участник (username=%s): %w", username, common.ErrUserNotFound)
		}
		return nil, common.WrapStorage("members.get_by_username", err)
	}
	return m, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE user_id = ?)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, common.WrapStorage("members.exists", err)
	}
	return exists, nil
}

func scanSQLiteMember(row *sql.Row) (*Member, error) {
	var m Member
	if err := row.Scan(
		&m.UserID, &m.Username, &m.FirstName, &m.LastName,
		&m.JoinedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
