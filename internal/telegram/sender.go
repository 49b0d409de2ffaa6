// Package telegram — тонкая обёртка над telego: отправка сообщений
// с ограничением скорости и поиск участников чата.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender отправляет текстовые сообщения. Telegram банит ботов, которые шлют
// больше ~30 сообщений в секунду, поэтому все ответы идут через один limiter.
type Sender struct {
	bot     *telego.Bot
	limiter *rate.Limiter
}

// NewSender создаёт отправителя с лимитом perSecond сообщений в секунду.
func NewSender(bot *telego.Bot, perSecond float64, burst int) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send ждёт своей очереди и отправляет text в чат chatID.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ожидание лимита отправки: %w", err)
	}
	if _, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("ошибка отправки сообщения в %d: %w", chatID, err)
	}
	log.WithField("chat_id", chatID).Debug("message sent")
	return nil
}

// DisplayName возвращает «Имя Фамилия», а если имени нет — @username.
func DisplayName(u *telego.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	return name
}

// MessageText возвращает текст сообщения и его сущности.
// У фото и документов текст лежит в подписи: Caption и CaptionEntities.
func MessageText(msg *telego.Message) (string, []telego.MessageEntity) {
	if msg == nil {
		return "", nil
	}
	if msg.Text == "" && msg.Caption != "" {
		return msg.Caption, msg.CaptionEntities
	}
	return msg.Text, msg.Entities
}
