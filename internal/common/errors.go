// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
)

// Ошибки участников
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки кармы
var (
	// ErrKarmaNotFound — у пользователя нет записи кармы (update без create)
	ErrKarmaNotFound = errors.New("запись кармы не найдена")
	// ErrKarmaSelfGive — попытка изменить карму самому себе
	ErrKarmaSelfGive = errors.New("нельзя менять карму самому себе")
	// ErrKarmaSpamDelay — карму этого пользователя меняли слишком недавно
	ErrKarmaSpamDelay = errors.New("карму этого пользователя пока нельзя менять")
	// ErrMemberUnresolved — пользователь не найден в чате (вышел или удалён)
	ErrMemberUnresolved = errors.New("участник не найден в чате")
)

// Ошибки хранилища
var (
	// ErrStorage — общий маркер ошибок хранилища (errors.Is(err, ErrStorage))
	ErrStorage = errors.New("ошибка хранилища")
)

// Ошибки админки
var (
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)

// StorageError — ошибка ввода-вывода хранилища с названием операции.
// Для обработчика сообщения это терминальная ошибка конкретного упоминания,
// но не всего процесса.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage.Error(), e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is позволяет проверять errors.Is(err, ErrStorage).
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// WrapStorage оборачивает err в StorageError. nil остаётся nil.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
