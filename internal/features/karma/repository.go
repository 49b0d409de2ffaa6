// Package karma — repository.go выполняет операции с таблицей karma в PostgreSQL.
package karma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/karma-bot/internal/common"
)

// Repository — реализация Store поверх pgxpool.
type Repository struct {
	db  *pgxpool.Pool
	now Clock
}

// NewRepository создаёт репозиторий кармы.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithClock подменяет источник времени (для тестов и миграций данных).
func (r *Repository) WithClock(now Clock) *Repository {
	r.now = now
	return r
}

// Create создаёт запись кармы. ON CONFLICT — существующая запись не трогается.
func (r *Repository) Create(ctx context.Context, userID int64, initial int64) error {
	query := `
		INSERT INTO karma (user_id, karma)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, initial); err != nil {
		return common.WrapStorage("karma.create", err)
	}
	return nil
}

// Read возвращает карму пользователя; found=false, если записи нет.
func (r *Repository) Read(ctx context.Context, userID int64) (int64, bool, error) {
	var karma int64
	err := r.db.QueryRow(ctx, `SELECT karma FROM karma WHERE user_id = $1`, userID).Scan(&karma)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, common.WrapStorage("karma.read", err)
	}
	return karma, true, nil
}

// Update прибавляет delta одним UPDATE — атомарно на уровне строки.
func (r *Repository) Update(ctx context.Context, userID int64, delta int64) error {
	query := `
		UPDATE karma
		SET karma = karma + $2, last_adjusted = $3
		WHERE user_id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, delta, r.now().UTC())
	if err != nil {
		return common.WrapStorage("karma.update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user_id=%d: %w", userID, common.ErrKarmaNotFound)
	}
	return nil
}

// Delete удаляет запись кармы.
func (r *Repository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM karma WHERE user_id = $1`, userID); err != nil {
		return common.WrapStorage("karma.delete", err)
	}
	return nil
}

// CanAdjust проверяет, прошла ли задержка с последнего изменения.
func (r *Repository) CanAdjust(ctx context.Context, userID int64, delay time.Duration) (bool, error) {
	var last time.Time
	err := r.db.QueryRow(ctx, `SELECT last_adjusted FROM karma WHERE user_id = $1`, userID).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, common.WrapStorage("karma.can_adjust", err)
	}
	return r.now().Sub(last) >= delay, nil
}

// ListUserIDs возвращает всех пользователей, у которых есть запись кармы.
func (r *Repository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM karma`)
	if err != nil {
		return nil, common.WrapStorage("karma.list", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, common.WrapStorage("karma.list", err)
	}
	return ids, nil
}
