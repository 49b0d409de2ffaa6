package karma

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"serotonyl.ru/karma-bot/internal/common"
)

// SQLiteRepository — реализация Store поверх database/sql + go-sqlite3.
// last_adjusted хранится как unix-время в наносекундах (0 — никогда).
type SQLiteRepository struct {
	db  *sql.DB
	now Clock
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// WithClock подменяет источник времени.
func (r *SQLiteRepository) WithClock(now Clock) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Create(ctx context.Context, userID int64, initial int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO karma (user_id, karma) VALUES (?, ?)`, userID, initial)
	return common.WrapStorage("karma.create", err)
}

func (r *SQLiteRepository) Read(ctx context.Context, userID int64) (int64, bool, error) {
	var karma int64
	err := r.db.QueryRowContext(ctx, `SELECT karma FROM karma WHERE user_id = ?`, userID).Scan(&karma)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, common.WrapStorage("karma.read", err)
	}
	return karma, true, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, userID int64, delta int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE karma SET karma = karma + ?, last_adjusted = ? WHERE user_id = ?`,
		delta, r.now().UnixNano(), userID)
	if err != nil {
		return common.WrapStorage("karma.update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.WrapStorage("karma.update", err)
	}
	if n == 0 {
		return fmt.Errorf("user_id=%d: %w", userID, common.ErrKarmaNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM karma WHERE user_id = ?`, userID)
	return common.WrapStorage("karma.delete", err)
}

func (r *SQLiteRepository) CanAdjust(ctx context.Context, userID int64, delay time.Duration) (bool, error) {
	var lastNanos int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_adjusted FROM karma WHERE user_id = ?`, userID).Scan(&lastNanos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, common.WrapStorage("karma.can_adjust", err)
	}
	return r.now().Sub(time.Unix(0, lastNanos)) >= delay, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM karma`)
	if err != nil {
		return nil, common.WrapStorage("karma.list", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, common.WrapStorage("karma.list", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStorage("karma.list", err)
	}
	return ids, nil
}
