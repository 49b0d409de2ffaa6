// Package admin — service.go содержит логику аутентификации и управления сессиями.
package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/karma-bot/internal/common"
)

// Service управляет сессиями администраторов.
type Service struct {
	passwordHash string
	now          func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session
	failed   map[int64][]time.Time // неудачные попытки входа
}

// NewService создаёт сервис админки. passwordHash — ADMIN_PASSWORD_HASH.
func NewService(passwordHash string) *Service {
	return &Service{
		passwordHash: passwordHash,
		now:          time.Now,
		sessions:     make(map[int64]*Session),
		failed:       make(map[int64][]time.Time),
	}
}

// VerifyPassword проверяет пароль администратора с использованием Argon2id.
// Защита от brute-force: 3 неудачные попытки за час = блокировка до конца часа.
func (s *Service) VerifyPassword(userID int64, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	recent := s.recentFailures(userID, now)
	if len(recent) >= MaxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	if !verifyArgon2id(password, s.passwordHash) {
		s.failed[userID] = append(recent, now)
		log.WithField("user_id", userID).Warn("Неудачная попытка входа в админку")
		return common.ErrWrongPassword
	}

	delete(s.failed, userID)
	session := &Session{
		UserID:          userID,
		Token:           uuid.NewString(),
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(SessionTTL),
		LastActivity:    now,
	}
	s.sessions[userID] = session
	log.WithFields(log.Fields{
		"user_id":    userID,
		"session_id": session.Token,
	}).Info("Администратор вошёл")
	return nil
}

// HasActiveSession проверяет сессию и продлевает LastActivity.
func (s *Service) HasActiveSession(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return false
	}
	now := s.now()
	if now.After(session.ExpiresAt) {
		delete(s.sessions, userID)
		return false
	}
	session.LastActivity = now
	return true
}

// SessionID возвращает токен текущей сессии для логов; "" — сессии нет.
func (s *Service) SessionID(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session.Token
	}
	return ""
}

// Logout завершает сессию.
func (s *Service) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// SweepExpired удаляет истёкшие сессии и старые попытки входа.
// Возвращает число удалённых сессий.
func (s *Service) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, userID)
			removed++
		}
	}
	for userID := range s.failed {
		if recent := s.recentFailures(userID, now); len(recent) == 0 {
			delete(s.failed, userID)
		} else {
			s.failed[userID] = recent
		}
	}
	return removed
}

// recentFailures возвращает неудачные попытки за последний AttemptWindow. Вызывать под mu.
func (s *Service) recentFailures(userID int64, now time.Time) []time.Time {
	cutoff := now.Add(-AttemptWindow)
	var recent []time.Time
	for _, t := range s.failed[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

// --- Криптографические утилиты ---

// HashPassword возвращает Argon2id-хеш пароля для ADMIN_PASSWORD_HASH.
// Формат: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
