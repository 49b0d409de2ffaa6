// Package common — pluralize.go содержит вспомогательные функции
// для форматирования чисел и изменений кармы.
package common

import "fmt"

// FormatDelta создаёт строку вида "+3 очка" или "-2 очка".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatDelta(5)  → "+5 очков"
//	FormatDelta(-2) → "-2 очка"
//	FormatDelta(1)  → "+1 очко"
func FormatDelta(delta int64) string {
	if delta >= 0 {
		return fmt.Sprintf("+%d %s", delta, PluralizePoints(delta))
	}
	return fmt.Sprintf("%d %s", delta, PluralizePoints(delta))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
