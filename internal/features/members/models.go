// Package members ведёт реестр участников чата, которых видел бот.
// models.go описывает структуры данных для работы с таблицей members.
package members

import "time"

// Member представляет участника чата в базе данных.
// Запись создаётся при первом сообщении пользователя или при вступлении в чат.
// Нужна в основном для одного: Telegram присылает упоминание @username
// без user ID, и найти ID можно только по этой таблице.
type Member struct {
	UserID    int64     `db:"user_id"`    // Telegram user ID (уникальный)
	Username  string    `db:"username"`   // @username без «@» (может быть пустым)
	FirstName string    `db:"first_name"` // Имя пользователя
	LastName  string    `db:"last_name"`  // Фамилия (может быть пустой)
	JoinedAt  time.Time `db:"joined_at"`  // Когда впервые увидели
	UpdatedAt time.Time `db:"updated_at"` // Последнее обновление записи
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть имя — имя + фамилия, иначе @username.
func (m *Member) DisplayName() string {
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	if name != "" {
		return name
	}
	if m.Username != "" {
		return "@" + m.Username
	}
	return "id" + formatID(m.UserID)
}
