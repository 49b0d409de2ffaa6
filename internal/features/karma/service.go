// Package karma — service.go содержит бизнес-логику кармы:
// разбор упоминаний → политика → запись → текст ответа.
package karma

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/common"
	"serotonyl.ru/karma-bot/internal/config"
	"serotonyl.ru/karma-bot/internal/metrics"
)

// Service управляет системой кармы. Ничего не знает о Telegram:
// на вход Message, на выход тексты ответов.
type Service struct {
	store           Store
	ranker          *Ranker
	policy          Policy
	delay           time.Duration
	leaderboardSize int
	metrics         *metrics.Metrics
}

// NewService создаёт сервис кармы. m может быть nil.
func NewService(store Store, ranker *Ranker, cfg *config.Config, m *metrics.Metrics) *Service {
	return &Service{
		store:  store,
		ranker: ranker,
		policy: Policy{
			PreventSelfKarma: cfg.PreventSelfKarma,
			EnforceSpamDelay: cfg.EnforceKarmaSpamDelay,
			PositiveMax:      cfg.BuzzkillPositiveMax,
			NegativeMax:      cfg.BuzzkillNegativeMax,
		},
		delay:           cfg.SpamDelay(),
		leaderboardSize: cfg.LeaderboardSize,
		metrics:         m,
	}
}

// HandleMessage обрабатывает каждое упоминание независимо и возвращает ответы по порядку.
// Ошибка хранилища на одном упоминании превращается в ответ-ошибку
// и не мешает остальным.
func (s *Service) HandleMessage(ctx context.Context, msg Message) []string {
	var replies []string
	for _, mention := range msg.Mentions {
		out, err := s.handleMention(ctx, msg, mention)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"author_id": msg.AuthorID,
				"target_id": mention.ID,
				"chat_id":   msg.ChatID,
			}).Error("Ошибка обработки кармы")
			s.metrics.Adjustment(metrics.ResultError)
			replies = append(replies, fmt.Sprintf("❌ Не получилось обработать карму %s, попробуйте позже", mention.DisplayName))
			continue
		}
		replies = append(replies, out...)
	}
	return replies
}

func (s *Service) handleMention(ctx context.Context, msg Message, mention Mention) ([]string, error) {
	intent, ok := ParseIntent(msg.Text, mention)
	if !ok {
		return nil, nil
	}

	user := NewUser(s.store, mention.ID, mention.DisplayName, s.delay)

	// Запрос кармы не проходит через политику: можно спрашивать про себя и сколько угодно.
	if intent.Kind == IntentQuery {
		karma, err := user.GetKarma(ctx)
		if err != nil {
			return nil, err
		}
		s.metrics.Query()
		return []string{karmaLine(user.DisplayName, karma)}, nil
	}

	logger := log.WithFields(log.Fields{
		"author_id": msg.AuthorID,
		"target_id": user.ID,
		"raw_delta": intent.Delta,
	})

	if err := s.policy.Check(ctx, msg.AuthorID, user); err != nil {
		switch {
		case errors.Is(err, common.ErrKarmaSelfGive):
			karma, readErr := user.GetKarma(ctx)
			if readErr != nil {
				return nil, readErr
			}
			logger.Debug("Карма самому себе отклонена")
			s.metrics.Adjustment(metrics.ResultSelf)
			return []string{karmaLine(user.DisplayName, karma) + "\n🚫 Нельзя менять карму самому себе"}, nil

		case errors.Is(err, common.ErrKarmaSpamDelay):
			logger.Debug("Карма отклонена: задержка анти-спама")
			s.metrics.Adjustment(metrics.ResultSpam)
			return []string{fmt.Sprintf("⏳ Карму %s можно менять не чаще раза в %s",
				user.DisplayName, common.FormatDelay(s.delay))}, nil
		}
		return nil, err
	}

	delta, clamped := s.policy.Clamp(intent.Delta)
	if err := user.UpdateKarma(ctx, int64(delta)); err != nil {
		return nil, err
	}
	karma, err := user.GetKarma(ctx)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"delta":   delta,
		"clamped": clamped,
		"karma":   karma,
	}).Info("Карма изменена")

	replies := []string{karmaLine(user.DisplayName, karma)}
	if clamped {
		s.metrics.Adjustment(metrics.ResultClamped)
		replies = append(replies, fmt.Sprintf("🙅 Buzzkill: за одно сообщение не больше %s", common.FormatDelta(int64(delta))))
	} else {
		s.metrics.Adjustment(metrics.ResultApplied)
	}
	return replies, nil
}

// OwnKarma — ответ на команду /karma: карма автора.
func (s *Service) OwnKarma(ctx context.Context, userID int64, displayName string) (string, error) {
	karma, err := NewUser(s.store, userID, displayName, s.delay).GetKarma(ctx)
	if err != nil {
		return "", err
	}
	s.metrics.Query()
	return fmt.Sprintf("⭐ Твоя карма: %s", common.FormatKarma(karma)), nil
}

// Leaderboard строит текст лидерборда для чата scope.
func (s *Service) Leaderboard(ctx context.Context, scope int64) (string, error) {
	top, bottom, err := s.ranker.Rank(ctx, scope, s.leaderboardSize)
	if err != nil {
		return "", fmt.Errorf("ошибка построения лидерборда: %w", err)
	}
	if len(top) == 0 {
		return "📭 Пока ни у кого нет кармы", nil
	}

	var sb strings.Builder
	sb.WriteString("🏆 Лучшая карма:\n")
	writeRanking(&sb, top)
	sb.WriteString("\n💀 Худшая карма:\n")
	writeRanking(&sb, bottom)
	return strings.TrimRight(sb.String(), "\n"), nil
}

func writeRanking(sb *strings.Builder, users []RankedUser) {
	for i, u := range users {
		fmt.Fprintf(sb, "%d. %s — %s\n", i+1, u.DisplayName, common.FormatKarma(u.Karma))
	}
}

func karmaLine(name string, karma int64) string {
	return fmt.Sprintf("⭐ %s: %s", name, common.FormatKarma(karma))
}
