// Package main — точка входа бота.
// Команды: run (по умолчанию), migrate, hash-password.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serotonyl.ru/karma-bot/internal/app"
	"serotonyl.ru/karma-bot/internal/config"
	"serotonyl.ru/karma-bot/internal/features/admin"
)

func main() {
	setupLogging()

	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("Бот завершился с ошибкой")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "karma-bot",
		Short:         "Telegram-бот кармы",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Запустить бота (long polling)",
			RunE:  runBot,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Применить миграции и выйти",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "hash-password <пароль>",
			Short: "Сгенерировать ADMIN_PASSWORD_HASH (Argon2id)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				hash, err := admin.HashPassword(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			},
		},
	)
	return root
}

func runBot(cmd *cobra.Command, _ []string) error {
	log.Info("=== Бот запускается ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}

	// Ctrl+C, docker stop — отменяют контекст, все горутины начинают завершаться
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}
	defer application.Close()

	log.Info("=== Бот готов к работе ===")
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("=== Бот остановлен ===")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return fmt.Errorf("некорректная конфигурация хранилища: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	storage.Close()

	log.WithField("driver", cfg.StorageDriver).Info("Миграции применены")
	return nil
}

// loadConfig загружает конфигурацию и выставляет уровень логирования.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return cfg, nil
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
