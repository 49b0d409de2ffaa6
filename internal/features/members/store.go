package members

import (
	"context"
	"strconv"
)

// Store — хранилище участников. Реализации: Repository (PostgreSQL)
// и SQLiteRepository. Если участник не найден, методы Get* возвращают
// ошибку, для которой errors.Is(err, common.ErrUserNotFound) == true.
type Store interface {
	// Upsert добавляет участника; если он уже есть — обновляет имя/username.
	Upsert(ctx context.Context, m *Member) error
	GetByUserID(ctx context.Context, userID int64) (*Member, error)
	// GetByUsername ищет без учёта регистра, username без «@».
	GetByUsername(ctx context.Context, username string) (*Member, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
