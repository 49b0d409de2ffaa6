// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: открывает хранилище, создаёт сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/bot"
	"serotonyl.ru/karma-bot/internal/bot/filters"
	"serotonyl.ru/karma-bot/internal/config"
	"serotonyl.ru/karma-bot/internal/db/postgres"
	"serotonyl.ru/karma-bot/internal/db/sqlite"
	"serotonyl.ru/karma-bot/internal/features/admin"
	"serotonyl.ru/karma-bot/internal/features/karma"
	"serotonyl.ru/karma-bot/internal/features/members"
	"serotonyl.ru/karma-bot/internal/jobs"
	"serotonyl.ru/karma-bot/internal/metrics"
	"serotonyl.ru/karma-bot/internal/telegram"
)

// App содержит все компоненты приложения.
type App struct {
	Bot           *bot.Bot
	Scheduler     *jobs.Scheduler
	MetricsServer *metrics.Server // nil, если METRICS_ADDR не задан
	BotAPI        *telego.Bot

	closeStorage func()
}

// Storage — хранилища участников и кармы поверх выбранного драйвера.
type Storage struct {
	Members members.Store
	Karma   karma.Store
	Close   func()
}

// OpenStorage подключается к STORAGE_DRIVER и применяет миграции.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		return &Storage{
			Members: members.NewRepository(pool),
			Karma:   karma.NewRepository(pool),
			Close:   pool.Close,
		}, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
		}
		return &Storage{
			Members: members.NewSQLiteRepository(db),
			Karma:   karma.NewSQLiteRepository(db),
			Close: func() {
				if err := db.Close(); err != nil {
					log.WithError(err).Warn("Ошибка закрытия SQLite")
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("неизвестный STORAGE_DRIVER %q", cfg.StorageDriver)
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Хранилище ===
	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 2. Telegram Bot API ===
	var opts []telego.BotOption
	if cfg.AppEnv == "development" {
		opts = append(opts, telego.WithDefaultDebugLogger())
	}
	botAPI, err := telego.NewBot(cfg.TelegramBotToken, opts...)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := botAPI.GetMe(ctx)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	// === 3. Метрики ===
	m := metrics.New()
	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, m)
	}

	// === 4. Сервисы ===
	sender := telegram.NewSender(botAPI, cfg.SendRatePerSecond, cfg.SendBurst)
	memberService := members.NewService(storage.Members)
	resolver := telegram.NewMemberResolver(botAPI, memberService)
	ranker := karma.NewRanker(storage.Karma, resolver, cfg.LeaderboardResolveWorkers, cfg.LeaderboardResolveTimeout).
		WithMetrics(m)
	karmaService := karma.NewService(storage.Karma, ranker, cfg, m)
	adminService := admin.NewService(cfg.AdminPasswordHash)

	// === 5. Обработчики ===
	karmaHandler := karma.NewHandler(karmaService, memberService, sender, cfg.KarmaChatID, cfg.EnableLeaderboard)
	adminHandler := admin.NewHandler(adminService, cfg.IsAdmin, storage.Karma, memberService, sender)

	// === 6. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.KarmaChatID, memberService, botAPI, sender)

	// === 7. Собираем бота ===
	b := bot.New(botAPI, cfg, m, sender, memberService, karmaHandler, adminHandler, chatFilter)

	// === 8. Планировщик задач ===
	var digest jobs.Leaderboard
	if cfg.EnableLeaderboard {
		digest = karmaService
	}
	scheduler := jobs.NewScheduler(jobs.Config{
		Timezone:   cfg.AppTimezone,
		DigestCron: cfg.LeaderboardDigestCron,
		ChatID:     cfg.KarmaChatID,
	}, digest, adminService, sender)

	return &App{
		Bot:           b,
		Scheduler:     scheduler,
		MetricsServer: metricsServer,
		BotAPI:        botAPI,
		closeStorage:  storage.Close,
	}, nil
}

// Run запускает планировщик, сервер метрик и бота; блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	if a.MetricsServer != nil {
		a.MetricsServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := a.MetricsServer.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("Ошибка остановки сервера метрик")
			}
		}()
	}

	if err := a.Bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ошибка long polling: %w", err)
	}
	return nil
}

// Close освобождает хранилище.
func (a *App) Close() {
	if a.closeStorage != nil {
		a.closeStorage()
	}
}
