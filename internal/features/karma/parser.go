// Package karma — parser.go определяет, что сообщение хочет сделать
// с конкретным упомянутым пользователем.
package karma

import (
	"regexp"
	"strings"
	"sync"
)

// Пробелы Telegram-клиентов бывают неразрывными, поэтому \p{Zs}.
const space = `[\s\p{Zs}]`

// ParseIntent разбирает text для упоминания target.
//
// Порядок проверок:
//  1. «@user karma» (karma без учёта регистра, пробелы необязательны) — запрос.
//     Если нашли, изменение для этого упоминания уже не ищем.
//  2. «@user +++» / «@user --» — изменение на длину серии.
//     Смешанная серия («+-+») не считается изменением.
//
// ok=false — в тексте нет ни того, ни другого.
func ParseIntent(text string, target Mention) (Intent, bool) {
	m := matcherFor(target)
	if m == nil {
		return Intent{}, false
	}

	if m.query.MatchString(text) {
		return Intent{TargetID: target.ID, Kind: IntentQuery}, true
	}

	sub := m.adjust.FindStringSubmatch(text)
	if sub == nil {
		return Intent{}, false
	}

	run := sub[1]
	delta := len(run)
	if run[0] == '-' {
		delta = -delta
	}
	return Intent{TargetID: target.ID, Delta: delta, Kind: IntentAdjustment}, true
}

// matcher — скомпилированные выражения для одного набора форм упоминания.
type matcher struct {
	query  *regexp.Regexp
	adjust *regexp.Regexp
}

// matchers кэширует matcher по строке форм: одни и те же люди
// упоминаются постоянно, а компиляция regexp заметно дороже поиска.
var matchers sync.Map // string -> *matcher

// matcherFor возвращает matcher для target; nil — у упоминания нет ни одной формы.
func matcherFor(target Mention) *matcher {
	forms := mentionPattern(target)
	if forms == "" {
		return nil
	}
	if m, ok := matchers.Load(forms); ok {
		return m.(*matcher)
	}

	m := &matcher{
		query: regexp.MustCompile(forms + space + `*(?i:karma)\b`),
		// После серии — конец текста или символ, который не «+» и не «-».
		adjust: regexp.MustCompile(forms + space + `+(\++|-+)(?:[^+\-]|$)`),
	}
	actual, _ := matchers.LoadOrStore(forms, m)
	return actual.(*matcher)
}

// mentionPattern собирает альтернативу из непустых форм упоминания.
// Формы экранируются: это литералы, а не регулярные выражения.
func mentionPattern(target Mention) string {
	var forms []string
	for _, f := range []string{target.Primary, target.Nickname} {
		if f = strings.TrimSpace(f); f != "" {
			forms = append(forms, regexp.QuoteMeta(f))
		}
	}
	if len(forms) == 0 {
		return ""
	}
	return "(?:" + strings.Join(forms, "|") + ")"
}
