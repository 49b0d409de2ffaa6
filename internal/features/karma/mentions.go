// Package karma — mentions.go достаёт упомянутых пользователей из Telegram-сообщения.
package karma

import (
	"context"
	"unicode/utf16"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/features/members"
	"serotonyl.ru/karma-bot/internal/telegram"
)

// Типы сущностей Telegram, которые означают упоминание.
const (
	entityMention     = "mention"      // @username, без user ID
	entityTextMention = "text_mention" // имя-ссылка на пользователя без username, с User
)

// UsernameResolver находит участника по @username.
// (nil, nil) — такого участника бот не знает.
type UsernameResolver interface {
	ResolveUsername(ctx context.Context, username string) (*members.Member, error)
}

// ExtractMentions возвращает упомянутых пользователей в порядке первого упоминания,
// без повторов. @username, которых нет в members, пропускаются: без user ID
// карму некуда записать.
func ExtractMentions(ctx context.Context, msg *telego.Message, resolver UsernameResolver) []Mention {
	body, entities := telegram.MessageText(msg)
	if len(entities) == 0 {
		return nil
	}

	// Смещения сущностей в Telegram считаются в UTF-16 code units.
	units := utf16.Encode([]rune(body))

	var out []Mention
	index := make(map[int64]int)
	add := func(m Mention) {
		if i, ok := index[m.ID]; ok {
			if out[i].Primary == "" {
				out[i].Primary = m.Primary
			}
			if out[i].Nickname == "" {
				out[i].Nickname = m.Nickname
			}
			return
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}

	for _, e := range entities {
		text, ok := sliceUTF16(units, e.Offset, e.Length)
		if !ok {
			continue
		}

		switch e.Type {
		case entityMention:
			member, err := resolver.ResolveUsername(ctx, text)
			if err != nil {
				log.WithError(err).WithField("username", text).Warn("Не удалось найти участника по username")
				continue
			}
			if member == nil {
				log.WithField("username", text).Debug("Неизвестный username, пропускаем")
				continue
			}
			add(Mention{ID: member.UserID, DisplayName: member.DisplayName(), Primary: text})

		case entityTextMention:
			if e.User == nil {
				continue
			}
			m := Mention{ID: e.User.ID, DisplayName: telegram.DisplayName(e.User), Nickname: text}
			if e.User.Username != "" {
				m.Primary = "@" + e.User.Username
			}
			add(m)
		}
	}
	return out
}

func sliceUTF16(units []uint16, offset, length int) (string, bool) {
	if offset < 0 || length <= 0 || offset+length > len(units) {
		return "", false
	}
	return string(utf16.Decode(units[offset : offset+length])), true
}
