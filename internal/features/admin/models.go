// Package admin реализует админ-команды с парольной аутентификацией.
// models.go описывает сессии администраторов.
package admin

import "time"

// Session — активная сессия администратора.
// Сессии живут в памяти процесса: после рестарта нужно войти заново.
type Session struct {
	UserID          int64
	Token           string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	LastActivity    time.Time
}

// Лимиты входа
const (
	SessionTTL        = 24 * time.Hour
	MaxFailedAttempts = 3
	AttemptWindow     = 1 * time.Hour
)

// Параметры Argon2id для новых хешей (HashPassword).
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonSaltLength         = 16
	argonKeyLength   uint32 = 32
)
