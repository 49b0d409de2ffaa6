package karma

import (
	"context"
	"time"
)

// User связывает пользователя Telegram с записью в Store.
// Несколько User могут смотреть на одну запись одновременно:
// синхронизирует хранилище, а не User.
type User struct {
	ID          int64
	DisplayName string

	store Store
	delay time.Duration
}

// NewUser создаёт представление пользователя. delay — KARMA_SPAM_DELAY.
func NewUser(store Store, id int64, displayName string, delay time.Duration) *User {
	return &User{ID: id, DisplayName: displayName, store: store, delay: delay}
}

// Exists проверяет, есть ли у пользователя запись кармы.
func (u *User) Exists(ctx context.Context) (bool, error) {
	_, found, err := u.store.Read(ctx, u.ID)
	return found, err
}

// RawKarma возвращает карму как есть: found=false, если записи нет.
func (u *User) RawKarma(ctx context.Context) (int64, bool, error) {
	return u.store.Read(ctx, u.ID)
}

// GetKarma возвращает карму для показа: нет записи — 0.
func (u *User) GetKarma(ctx context.Context) (int64, error) {
	karma, _, err := u.store.Read(ctx, u.ID)
	return karma, err
}

// UpdateKarma создаёт запись при первом изменении и прибавляет delta.
// Гонка двух первых изменений безопасна: второй Create — no-op.
func (u *User) UpdateKarma(ctx context.Context, delta int64) error {
	found, err := u.Exists(ctx)
	if err != nil {
		return err
	}
	if !found {
		if err := u.store.Create(ctx, u.ID, 0); err != nil {
			return err
		}
	}
	return u.store.Update(ctx, u.ID, delta)
}

// CanUpdateKarma проверяет, прошла ли задержка анти-спама.
func (u *User) CanUpdateKarma(ctx context.Context) (bool, error) {
	return u.store.CanAdjust(ctx, u.ID, u.delay)
}
