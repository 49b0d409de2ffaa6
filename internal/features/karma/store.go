package karma

import (
	"context"
	"time"
)

// Store — долговременное хранилище кармы по user ID.
// Реализации: Repository (PostgreSQL) и SQLiteRepository.
// Ошибки ввода-вывода оборачиваются в *common.StorageError.
type Store interface {
	// Create добавляет запись, только если её ещё нет. Повторный вызов — no-op.
	Create(ctx context.Context, userID int64, initial int64) error
	// Read возвращает карму и found=false, если записи нет (это не ноль).
	Read(ctx context.Context, userID int64) (karma int64, found bool, err error)
	// Update атомарно прибавляет delta и обновляет last_adjusted.
	// Для несуществующей записи возвращает common.ErrKarmaNotFound.
	Update(ctx context.Context, userID int64, delta int64) error
	// Delete удаляет запись, если она есть.
	Delete(ctx context.Context, userID int64) error
	// CanAdjust: true, если записи нет или с last_adjusted прошло не меньше delay.
	// Это совет, а не блокировка: два конкурентных вызова могут оба получить true.
	CanAdjust(ctx context.Context, userID int64, delay time.Duration) (bool, error)
	// ListUserIDs возвращает все user ID без гарантии порядка.
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Clock возвращает текущее время. В тестах подменяется.
type Clock func() time.Time
