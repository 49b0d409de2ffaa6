package karma

import (
	"context"

	"serotonyl.ru/karma-bot/internal/common"
)

// Policy — анти-абьюз правила для изменений кармы.
// Проверки идут строго по порядку: своя карма → задержка → Buzzkill.
type Policy struct {
	PreventSelfKarma bool
	EnforceSpamDelay bool
	// Buzzkill: изменение за одно сообщение лежит в [-NegativeMax, PositiveMax]
	PositiveMax int
	NegativeMax int
}

// Check проверяет первые два правила. Ошибки:
//   - common.ErrKarmaSelfGive — автор меняет карму сам себе;
//   - common.ErrKarmaSpamDelay — задержка ещё не прошла;
//   - ошибка хранилища.
//
// Ни одна проверка не меняет хранилище.
func (p Policy) Check(ctx context.Context, authorID int64, target *User) error {
	if p.PreventSelfKarma && authorID == target.ID {
		return common.ErrKarmaSelfGive
	}
	if p.EnforceSpamDelay {
		ok, err := target.CanUpdateKarma(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrKarmaSpamDelay
		}
	}
	return nil
}

// Clamp обрезает raw до [-NegativeMax, PositiveMax] и сообщает, была ли обрезка.
func (p Policy) Clamp(raw int) (int, bool) {
	switch {
	case raw > p.PositiveMax:
		return p.PositiveMax, true
	case raw < -p.NegativeMax:
		return -p.NegativeMax, true
	}
	return raw, false
}
