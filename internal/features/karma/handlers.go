// Package karma — handlers.go связывает Telegram-сообщения с сервисом кармы.
package karma

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/telegram"
)

// Sender отправляет текст в чат.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Handler обрабатывает события кармы.
type Handler struct {
	service     *Service
	members     UsernameResolver
	sender      Sender
	scope       int64 // чат, по которому строится лидерборд
	leaderboard bool
}

// NewHandler создаёт обработчик кармы.
func NewHandler(service *Service, members UsernameResolver, sender Sender, scope int64, enableLeaderboard bool) *Handler {
	return &Handler{
		service:     service,
		members:     members,
		sender:      sender,
		scope:       scope,
		leaderboard: enableLeaderboard,
	}
}

// HandleMessage разбирает упоминания в обычном сообщении.
// Сообщения без упоминаний и без «+/-/karma» молча игнорируются.
func (h *Handler) HandleMessage(ctx context.Context, message *telego.Message) {
	if message.From == nil || message.From.IsBot {
		return
	}

	mentions := ExtractMentions(ctx, message, h.members)
	if len(mentions) == 0 {
		return
	}

	text, _ := telegram.MessageText(message)
	replies := h.service.HandleMessage(ctx, Message{
		ChatID:     message.Chat.ID,
		AuthorID:   message.From.ID,
		AuthorName: telegram.DisplayName(message.From),
		Text:       text,
		Mentions:   mentions,
	})
	for _, text := range replies {
		h.sendMessage(ctx, message.Chat.ID, text)
	}
}

// HandleKarma — команда /karma. Показывает ТОЛЬКО свою карму.
func (h *Handler) HandleKarma(ctx context.Context, chatID int64, from *telego.User) {
	text, err := h.service.OwnKarma(ctx, from.ID, telegram.DisplayName(from))
	if err != nil {
		log.WithError(err).WithField("user_id", from.ID).Error("Ошибка получения кармы")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения кармы")
		return
	}
	h.sendMessage(ctx, chatID, text)
}

// HandleLeaderboard — команда /leaderboard.
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID int64) {
	if !h.leaderboard {
		h.sendMessage(ctx, chatID, "🏆 Лидерборд отключён")
		return
	}
	text, err := h.service.Leaderboard(ctx, h.scope)
	if err != nil {
		log.WithError(err).Error("Ошибка построения лидерборда")
		h.sendMessage(ctx, chatID, "❌ Не получилось построить лидерборд")
		return
	}
	h.sendMessage(ctx, chatID, text)
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if err := h.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
