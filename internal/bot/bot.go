// Package bot содержит главный модуль бота: приём апдейтов, фильтрацию и маршрутизацию.
package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/bot/filters"
	"serotonyl.ru/karma-bot/internal/bot/middleware"
	"serotonyl.ru/karma-bot/internal/config"
	"serotonyl.ru/karma-bot/internal/features/admin"
	"serotonyl.ru/karma-bot/internal/features/karma"
	"serotonyl.ru/karma-bot/internal/features/members"
	"serotonyl.ru/karma-bot/internal/metrics"
	"serotonyl.ru/karma-bot/internal/telegram"
)

const helpText = `Я считаю карму участников чата.

@user ++ — добавить карму (плюсов сколько угодно, но не больше лимита)
@user -- — убавить карму
@user karma — показать карму пользователя
/karma — твоя карма
/leaderboard — лучшие и худшие`

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api     *telego.Bot
	cfg     *config.Config
	metrics *metrics.Metrics
	sender  karma.Sender

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	karmaHandler  *karma.Handler
	adminHandler  *admin.Handler
	memberService *members.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *telego.Bot,
	cfg *config.Config,
	m *metrics.Metrics,
	sender karma.Sender,
	memberService *members.Service,
	karmaHandler *karma.Handler,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		metrics:       m,
		sender:        sender,
		chatFilter:    chatFilter,
		rateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		karmaHandler:  karmaHandler,
		adminHandler:  adminHandler,
		memberService: memberService,
		parser:        NewCommandParser(),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
// Перед возвратом дожидается обработчиков, которые уже запущены.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return err
	}
	defer b.rateLimiter.Close()
	defer b.wg.Wait()

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			b.wg.Add(1)
			go func(upd telego.Update) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil {
		b.metrics.Update("other")
		return
	}

	// Вступление новых участников
	if len(message.NewChatMembers) > 0 {
		b.metrics.Update("join")
		if message.Chat.ID == b.cfg.KarmaChatID {
			b.handleNewMembers(ctx, message.NewChatMembers)
		}
		return
	}

	// Подпись к фото или документу тоже считается текстом
	text, _ := telegram.MessageText(message)
	if text == "" {
		b.metrics.Update("other")
		return
	}
	b.metrics.Update("message")

	middleware.LogMessage(message)

	// Проверяем доступ (KARMA_CHAT_ID или DM участника)
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Запоминаем автора: по этой таблице @username превращается в user ID
	if err := b.memberService.Remember(ctx, userID,
		message.From.Username, message.From.FirstName, message.From.LastName,
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Remember failed")
	}

	cmd, args, isCommand := b.parser.ParseCommand(text)
	log.WithFields(log.Fields{
		"isCommand": isCommand,
		"cmd":       cmd,
		"args":      args,
	}).Debug("parsed command")

	if isCommand && b.routeCommand(ctx, message, cmd, args) {
		return
	}

	// Упоминания обрабатываются только в чате кармы
	if chatID == b.cfg.KarmaChatID {
		b.karmaHandler.HandleMessage(ctx, message)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
// false — команда неизвестна, сообщение обрабатывается как обычное.
func (b *Bot) routeCommand(ctx context.Context, message *telego.Message, cmd string, args []string) bool {
	chatID := message.Chat.ID
	userID := message.From.ID

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	switch cmd {
	case "start", "help":
		b.sendMessage(ctx, chatID, helpText)

	case "karma", "карма":
		b.karmaHandler.HandleKarma(ctx, chatID, message.From)

	case "leaderboard", "top", "топ":
		b.karmaHandler.HandleLeaderboard(ctx, chatID)

	default:
		if message.Chat.Type == telego.ChatTypePrivate {
			return b.adminHandler.HandleCommand(ctx, chatID, userID, cmd, args)
		}
		return false
	}
	return true
}

// handleNewMembers запоминает вступивших участников.
func (b *Bot) handleNewMembers(ctx context.Context, newMembers []telego.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		if err := b.memberService.Remember(ctx, user.ID, user.Username, user.FirstName, user.LastName); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("Remember new member failed")
			continue
		}
		log.WithField("user", user.Username).Info("Новый участник обработан")
	}
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if err := b.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// CommandParser разбирает команды с префиксами ! и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс «@botname» (/karma@my_bot) отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command, _, _ := strings.Cut(parts[0], "@")
	command = strings.ToLower(command)
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
