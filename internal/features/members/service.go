// Package members — service.go содержит бизнес-логику управления участниками.
// Сервис регистрирует авторов сообщений и новых участников
// и разрешает @username в Telegram user ID.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/common"
)

// Service управляет участниками чата.
type Service struct {
	repo Store
}

// NewService создаёт новый сервис участников.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Remember сохраняет (или обновляет) данные пользователя.
// Вызывается для каждого автора сообщения и каждого нового участника чата,
// чтобы таблица members не отставала от смены username.
func (s *Service) Remember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	member := &Member{
		UserID:    userID,
		Username:  strings.TrimPrefix(username, "@"),
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.repo.Upsert(ctx, member); err != nil {
		return fmt.Errorf("ошибка сохранения участника: %w", err)
	}
	log.WithFields(log.Fields{
		"user_id":  userID,
		"username": username,
	}).Debug("Участник сохранён")
	return nil
}

// IsMember проверяет, видел ли бот пользователя в чате.
// Используется для валидации доступа к DM.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// GetByUserID возвращает участника по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// ResolveUsername возвращает участника по @username (с «@» или без).
// Если участник не найден — (nil, nil): для упоминаний это не ошибка,
// просто бот ещё не видел этого пользователя.
func (s *Service) ResolveUsername(ctx context.Context, username string) (*Member, error) {
	m, err := s.repo.GetByUsername(ctx, strings.TrimPrefix(username, "@"))
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// DisplayName возвращает имя участника или fallback, если его нет в базе.
func (s *Service) DisplayName(ctx context.Context, userID int64, fallback string) string {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil || m == nil {
		return fallback
	}
	return m.DisplayName()
}
