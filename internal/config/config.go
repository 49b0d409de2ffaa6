// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые движки хранилища.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	// ID группового чата, в котором бот считает карму (он же «сервер» для лидерборда)
	KarmaChatID int64 `envconfig:"KARMA_CHAT_ID"`

	// --- Storage ---
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"karma.sqlite3"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"karma_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`
	// Пусто — метрики не публикуются
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`
	// Ограничение исходящих сообщений (Telegram режет ~30 сообщений/сек на бота)
	SendRatePerSecond float64 `envconfig:"SEND_RATE_PER_SECOND" default:"20"`
	SendBurst         int     `envconfig:"SEND_BURST" default:"5"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Karma ---
	BuzzkillPositiveMax int `envconfig:"BUZZKILL_POSITIVE_MAX" default:"5"`
	// Больше 2 не советуем: три минуса подряд некоторые клиенты рисуют как разделитель
	BuzzkillNegativeMax   int  `envconfig:"BUZZKILL_NEGATIVE_MAX" default:"2"`
	EnforceKarmaSpamDelay bool `envconfig:"ENFORCE_KARMA_SPAM_DELAY" default:"true"`
	// Секунды
	KarmaSpamDelay   int  `envconfig:"KARMA_SPAM_DELAY" default:"15"`
	PreventSelfKarma bool `envconfig:"PREVENT_SELF_KARMA" default:"true"`

	// --- Leaderboard ---
	EnableLeaderboard bool `envconfig:"ENABLE_LEADERBOARD" default:"true"`
	LeaderboardSize   int  `envconfig:"LEADERBOARD_SIZE" default:"5"`
	// Сколько getChatMember выполняем одновременно
	LeaderboardResolveWorkers int           `envconfig:"LEADERBOARD_RESOLVE_WORKERS" default:"16"`
	LeaderboardResolveTimeout time.Duration `envconfig:"LEADERBOARD_RESOLVE_TIMEOUT" default:"5s"`
	// Cron-выражение для публикации лидерборда в чат. Пусто — выключено.
	LeaderboardDigestCron string `envconfig:"LEADERBOARD_DIGEST_CRON" default:""`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SpamDelay возвращает KARMA_SPAM_DELAY как time.Duration.
func (c *Config) SpamDelay() time.Duration {
	return time.Duration(c.KarmaSpamDelay) * time.Second
}

// IsAdmin проверяет, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ValidateStorage проверяет только настройки хранилища.
// Нужна командам, которым не нужен Telegram (например, migrate).
func (c *Config) ValidateStorage() error {
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD не задан")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH не задан")
		}
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER %q (postgres|sqlite)", c.StorageDriver)
	}
	return nil
}

// Validate проверяет всю конфигурацию, необходимую для запуска бота.
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	if c.KarmaChatID == 0 {
		return fmt.Errorf("KARMA_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.SendRatePerSecond <= 0 || c.SendBurst <= 0 {
		return fmt.Errorf("SEND_RATE_PER_SECOND и SEND_BURST должны быть > 0")
	}
	if c.BuzzkillPositiveMax < 1 {
		return fmt.Errorf("BUZZKILL_POSITIVE_MAX должен быть >= 1")
	}
	// 0 — карму убавлять нельзя совсем
	if c.BuzzkillNegativeMax < 0 {
		return fmt.Errorf("BUZZKILL_NEGATIVE_MAX не может быть отрицательным")
	}
	if c.KarmaSpamDelay < 0 {
		return fmt.Errorf("KARMA_SPAM_DELAY не может быть отрицательным")
	}
	if c.LeaderboardSize < 1 || c.LeaderboardSize > 100 {
		return fmt.Errorf("LEADERBOARD_SIZE должен быть в диапазоне 1..100")
	}
	if c.LeaderboardResolveWorkers <= 0 {
		return fmt.Errorf("LEADERBOARD_RESOLVE_WORKERS должен быть > 0")
	}
	if len(c.AdminIDs) > 0 && c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH обязателен, если задан ADMIN_IDS")
	}
	return c.ValidateStorage()
}

// Load читает переменные окружения и заполняет структуру Config.
// Валидацию вызывающий делает сам: разным командам нужны разные поля.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
