// Package admin — handlers.go обрабатывает админ-команды в личных сообщениях.
// Поток: /login <пароль> → команды → /logout.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/common"
	"serotonyl.ru/karma-bot/internal/features/karma"
	"serotonyl.ru/karma-bot/internal/features/members"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	isAdmin func(userID int64) bool
	store   karma.Store
	members *members.Service
	sender  karma.Sender
}

// NewHandler создаёт обработчик админки. isAdmin — проверка по ADMIN_IDS.
func NewHandler(service *Service, isAdmin func(int64) bool, store karma.Store, memberService *members.Service, sender karma.Sender) *Handler {
	return &Handler{
		service: service,
		isAdmin: isAdmin,
		store:   store,
		members: memberService,
		sender:  sender,
	}
}

// HandleCommand обрабатывает команду администратора в DM.
// Возвращает false, если команда не админская или пользователь не админ —
// тогда её обрабатывает общий роутер.
func (h *Handler) HandleCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) bool {
	switch cmd {
	case "login", "logout", "karma_get", "karma_delete":
	default:
		return false
	}
	if !h.isAdmin(userID) {
		return false
	}

	if cmd == "login" {
		h.handleLogin(ctx, chatID, userID, args)
		return true
	}

	if !h.service.HasActiveSession(userID) {
		h.sendMessage(ctx, chatID, "🔐 Сначала войдите: /login <пароль>")
		return true
	}

	switch cmd {
	case "logout":
		h.service.Logout(userID)
		h.sendMessage(ctx, chatID, "👋 Сессия завершена")
	case "karma_get":
		h.handleKarmaGet(ctx, chatID, args)
	case "karma_delete":
		h.handleKarmaDelete(ctx, chatID, userID, args)
	}
	return true
}

func (h *Handler) handleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		h.sendMessage(ctx, chatID, "Использование: /login <пароль>")
		return
	}
	if err := h.service.VerifyPassword(userID, strings.Join(args, " ")); err != nil {
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ %s", err.Error()))
		return
	}
	h.sendMessage(ctx, chatID, "✅ Аутентификация успешна!\n/karma_get <id|@username>\n/karma_delete <id|@username>\n/logout")
}

// handleKarmaGet показывает сырое значение: «записи нет» и «0» — разные вещи.
func (h *Handler) handleKarmaGet(ctx context.Context, chatID int64, args []string) {
	userID, ok := h.resolveTarget(ctx, chatID, args)
	if !ok {
		return
	}
	value, found, err := h.store.Read(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка чтения кармы")
		h.sendMessage(ctx, chatID, "❌ Ошибка чтения кармы")
		return
	}
	if !found {
		h.sendMessage(ctx, chatID, fmt.Sprintf("user_id=%d: записи кармы нет", userID))
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("user_id=%d: %s", userID, common.FormatKarma(value)))
}

func (h *Handler) handleKarmaDelete(ctx context.Context, chatID, adminID int64, args []string) {
	userID, ok := h.resolveTarget(ctx, chatID, args)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка удаления кармы")
		h.sendMessage(ctx, chatID, "❌ Ошибка удаления кармы")
		return
	}
	log.WithFields(log.Fields{
		"admin_id":   adminID,
		"session_id": h.service.SessionID(adminID),
		"user_id":    userID,
	}).Info("Карма удалена администратором")
	h.sendMessage(ctx, chatID, fmt.Sprintf("🗑 Карма user_id=%d удалена", userID))
}

// resolveTarget принимает числовой ID или @username.
func (h *Handler) resolveTarget(ctx context.Context, chatID int64, args []string) (int64, bool) {
	if len(args) == 0 {
		h.sendMessage(ctx, chatID, "Укажите user ID или @username")
		return 0, false
	}
	arg := strings.TrimSpace(args[0])
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, true
	}

	m, err := h.members.ResolveUsername(ctx, arg)
	if err != nil {
		log.WithError(err).WithField("username", arg).Error("Ошибка поиска участника")
		h.sendMessage(ctx, chatID, "❌ Ошибка поиска участника")
		return 0, false
	}
	if m == nil {
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ %s: %s", arg, common.ErrUserNotFound.Error()))
		return 0, false
	}
	return m.UserID, true
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if err := h.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
