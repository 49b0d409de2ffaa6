// Package karma реализует систему кармы: разбор «@user +++» из текста,
// анти-абьюз политику и лидерборд.
// models.go описывает записи хранилища и промежуточные значения.
package karma

import "time"

// Record — запись кармы пользователя в хранилище.
// Отсутствие записи означает «0, никогда не меняли» и отличается
// от сохранённого нуля («карму вернули ровно в ноль»).
type Record struct {
	UserID       int64     `db:"user_id"`
	Karma        int64     `db:"karma"`
	LastAdjusted time.Time `db:"last_adjusted"`
}

// IntentKind — что пользователь хотел сделать с упомянутым человеком.
type IntentKind int

const (
	IntentQuery      IntentKind = iota + 1 // «@user karma»
	IntentAdjustment                       // «@user +++» / «@user --»
)

func (k IntentKind) String() string {
	switch k {
	case IntentQuery:
		return "query"
	case IntentAdjustment:
		return "adjustment"
	}
	return "unknown"
}

// Intent — результат разбора сообщения для одного упоминания. Не сохраняется.
type Intent struct {
	TargetID int64
	Delta    int // со знаком; для IntentQuery всегда 0
	Kind     IntentKind
}

// Mention — упомянутый в сообщении пользователь и две текстовые формы,
// которыми его могли упомянуть: @username и текст text_mention (имя).
// Пустая форма не участвует в разборе.
type Mention struct {
	ID          int64
	DisplayName string
	Primary     string // "@username"
	Nickname    string // текст text_mention
}

// Message — входящее сообщение, уже оторванное от Telegram.
type Message struct {
	ChatID     int64
	AuthorID   int64
	AuthorName string
	Text       string
	Mentions   []Mention
}

// RankedUser — строка лидерборда. Важен только порядок.
type RankedUser struct {
	UserID      int64
	DisplayName string
	Karma       int64
}
