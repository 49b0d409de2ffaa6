// Package members — repository.go отвечает за все операции с таблицей members в PostgreSQL.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/karma-bot/internal/common"
)

// Repository — реализация Store поверх pgxpool.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert добавляет нового участника в таблицу members.
// На конфликте по user_id обновляет только имя/username.
func (r *Repository) Upsert(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, m.UserID, m.Username, m.FirstName, m.LastName)
	if err != nil {
		return common.WrapStorage("members.upsert", err)
	}
	return nil
}

// GetByUserID: если не найден — ошибка с common.ErrUserNotFound.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	query := `
		SELECT user_id, username, first_name, last_name, joined_at, updated_at
		FROM members
		WHERE user_id = $1
	`
	m, err := scanMember(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("участник (user_id=%d): %w", userID, common.ErrUserNotFound)
		}
		return nil, common.WrapStorage("members.get_by_id", err)
	}
	return m, nil
}

// GetByUsername: если не найден — ошибка с common.ErrUserNotFound.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Member, error) {
	query := `
		SELECT user_id, username, first_name, last_name, joined_at, updated_at
		FROM members
		WHERE LOWER(username) = LOWER($1)
		ORDER BY updated_at DESC
		LIMIT 1
	`
	m, err := scanMember(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("участник (username=%s): %w", username, common.ErrUserNotFound)
		}
		return nil, common.WrapStorage("members.get_by_username", err)
	}
	return m, nil
}

func (r *Repository) Exists(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM members WHERE user_id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, common.WrapStorage("members.exists", err)
	}
	return exists, nil
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	if err := row.Scan(
		&m.UserID, &m.Username, &m.FirstName, &m.LastName,
		&m.JoinedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
