// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем.
package common

import (
	"fmt"
	"time"
)

// pluralize выбирает форму слова для числа n по правилам русского языка.
//
// Правила:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizePoints возвращает правильную форму слова «очко» для числа n.
//
// Примеры:
//
//	PluralizePoints(1)  → "очко"
//	PluralizePoints(3)  → "очка"
//	PluralizePoints(5)  → "очков"
//	PluralizePoints(11) → "очков"
//	PluralizePoints(-21) → "очко"
func PluralizePoints(n int64) string {
	return pluralize(n, "очко", "очка", "очков")
}

// PluralizeSeconds возвращает правильную форму слова «секунда».
func PluralizeSeconds(n int64) string {
	return pluralize(n, "секунду", "секунды", "секунд")
}

// FormatKarma форматирует карму в читабельную строку.
// Пример: FormatKarma(-3) → "-3 очка"
func FormatKarma(karma int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(karma), PluralizePoints(karma))
}

// FormatDelay форматирует задержку в целых секундах (с округлением вверх).
// Пример: FormatDelay(1500*time.Millisecond) → "2 секунды"
func FormatDelay(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d %s", secs, PluralizeSeconds(secs))
}

// LoadLocation загружает часовой пояс по имени.
// Если не удалось (нет tzdata в контейнере) — возвращает UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
