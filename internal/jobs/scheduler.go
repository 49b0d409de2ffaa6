// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: дайджест лидерборда в чат
// и ежечасная чистка истёкших админ-сессий.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/common"
)

// Leaderboard строит текст лидерборда для чата scope.
type Leaderboard interface {
	Leaderboard(ctx context.Context, scope int64) (string, error)
}

// SessionSweeper удаляет истёкшие сессии.
type SessionSweeper interface {
	SweepExpired() int
}

// Sender отправляет текст в чат.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Config — то, что планировщику нужно из конфигурации.
type Config struct {
	Timezone   string
	DigestCron string // пусто — дайджест выключен
	ChatID     int64
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron        *cron.Cron
	cfg         Config
	leaderboard Leaderboard
	sweeper     SessionSweeper
	sender      Sender
}

// NewScheduler создаёт планировщик в часовом поясе cfg.Timezone.
// leaderboard == nil отключает дайджест.
func NewScheduler(cfg Config, leaderboard Leaderboard, sweeper SessionSweeper, sender Sender) *Scheduler {
	c := cron.New(cron.WithLocation(common.LoadLocation(cfg.Timezone)))

	return &Scheduler{
		cron:        c,
		cfg:         cfg,
		leaderboard: leaderboard,
		sweeper:     sweeper,
		sender:      sender,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.DigestCron != "" && s.leaderboard != nil {
		if _, err := s.cron.AddFunc(s.cfg.DigestCron, func() {
			log.Info("[CRON] Дайджест лидерборда")
			if err := s.SendDigest(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка дайджеста")
			}
		}); err != nil {
			return fmt.Errorf("некорректное расписание LEADERBOARD_DIGEST_CRON %q: %w", s.cfg.DigestCron, err)
		}
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc("@hourly", func() {
			if n := s.sweeper.SweepExpired(); n > 0 {
				log.WithField("sessions", n).Info("[CRON] Истёкшие админ-сессии удалены")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithField("timezone", s.cfg.Timezone).Info("Планировщик задач запущен")
	return nil
}

// SendDigest публикует лидерборд в чат кармы.
func (s *Scheduler) SendDigest(ctx context.Context) error {
	text, err := s.leaderboard.Leaderboard(ctx, s.cfg.ChatID)
	if err != nil {
		return fmt.Errorf("построение лидерборда: %w", err)
	}
	return s.sender.Send(ctx, s.cfg.ChatID, text)
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
