// Package filters решает, обслуживает ли бот сообщение из данного чата.
package filters

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/features/karma"
	"serotonyl.ru/karma-bot/internal/features/members"
)

// ChatFilter пропускает сообщения из чата кармы и личку его участников.
type ChatFilter struct {
	karmaChatID   int64
	memberService *members.Service
	bot           *telego.Bot
	sender        karma.Sender
}

func NewChatFilter(karmaChatID int64, memberService *members.Service, bot *telego.Bot, sender karma.Sender) *ChatFilter {
	return &ChatFilter{
		karmaChatID:   karmaChatID,
		memberService: memberService,
		bot:           bot,
		sender:        sender,
	}
}

func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	if message == nil {
		log.WithField("component", "ChatFilter").Warn("nil message")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}
	if f.karmaChatID == 0 {
		log.WithField("component", "ChatFilter").Error("karmaChatID is 0 (config bug)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component":     "ChatFilter",
		"chat_id":       chatID,
		"chat_type":     message.Chat.Type,
		"user_id":       userID,
		"karma_chat_id": f.karmaChatID,
	})

	// 1) Чат кармы
	if chatID == f.karmaChatID {
		logger.Debug("allow: karma chat")
		return true
	}

	// 2) Личка: сначала быстро по БД
	if message.Chat.Type == telego.ChatTypePrivate {
		isMember, err := f.memberService.IsMember(ctx, userID)
		if err != nil {
			logger.WithError(err).Error("member check failed (db)")
			return false
		}
		if isMember {
			logger.Debug("allow: private (db member)")
			return true
		}

		// 2.1) БД не знает пользователя: проверяем членство через Telegram API
		cm, err := f.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: tu.ID(f.karmaChatID),
			UserID: userID,
		})
		if err != nil {
			logger.WithError(err).Error("member check failed (telegram GetChatMember)")
			return false
		}

		switch status := cm.MemberStatus(); status {
		case "creator", "administrator", "member", "restricted":
			if err := f.memberService.Remember(ctx, userID,
				message.From.Username, message.From.FirstName, message.From.LastName,
			); err != nil {
				logger.WithError(err).Warn("failed to backfill member to DB (allowing anyway)")
			}
			logger.WithField("tg_status", status).Info("allow: private (telegram member, backfilled)")
			return true

		default:
			logger.WithField("tg_status", status).Info("deny: private (not a chat member)")
			if err := f.sender.Send(ctx, chatID, "❌ Бот работает только для участников чата"); err != nil {
				logger.WithError(err).Warn("failed to send deny message")
			}
			return false
		}
	}

	// 3) Остальные чаты игнорируем
	logger.Info("deny: not karma chat and not private")
	return false
}
