package karma

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/karma-bot/internal/common"
)

// runStoreContract проверяет поведение, общее для всех реализаций Store.
// newStore должен отдавать пустое хранилище; clock может быть nil.
func runStoreContract(t *testing.T, newStore func(t *testing.T, clock *fakeClock) Store) {
	t.Run("create is idempotent", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, nil)

		require.NoError(t, store.Create(ctx, 1, 5))
		require.NoError(t, store.Create(ctx, 1, 100))

		karma, found, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(5), karma, "повторный Create не перезаписывает запись")
	})

	t.Run("absent is not zero", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, nil)

		karma, found, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Zero(t, karma)

		require.NoError(t, store.Create(ctx, 1, 0))
		karma, found, err = store.Read(ctx, 1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Zero(t, karma)
	})

	t.Run("update", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, nil)

		err := store.Update(ctx, 1, 3)
		require.ErrorIs(t, err, common.ErrKarmaNotFound)

		require.NoError(t, store.Create(ctx, 1, 0))
		require.NoError(t, store.Update(ctx, 1, 3))
		require.NoError(t, store.Update(ctx, 1, -5))

		karma, _, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(-2), karma)
	})

	t.Run("can adjust", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		store := newStore(t, clock)
		delay := 15 * time.Second

		ok, err := store.CanAdjust(ctx, 1, delay)
		require.NoError(t, err)
		assert.True(t, ok, "без записи менять можно")

		require.NoError(t, store.Create(ctx, 1, 0))
		ok, err = store.CanAdjust(ctx, 1, delay)
		require.NoError(t, err)
		assert.True(t, ok, "запись без изменений: last_adjusted в прошлом")

		require.NoError(t, store.Update(ctx, 1, 1))
		ok, err = store.CanAdjust(ctx, 1, delay)
		require.NoError(t, err)
		assert.False(t, ok)

		clock.Advance(delay - time.Nanosecond)
		ok, err = store.CanAdjust(ctx, 1, delay)
		require.NoError(t, err)
		assert.False(t, ok)

		clock.Advance(time.Nanosecond)
		ok, err = store.CanAdjust(ctx, 1, delay)
		require.NoError(t, err)
		assert.True(t, ok, "ровно delay — уже можно")
	})

	t.Run("delete and list", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, nil)

		for _, id := range []int64{10, 20, 30} {
			require.NoError(t, store.Create(ctx, id, id))
		}
		require.NoError(t, store.Delete(ctx, 20))
		require.NoError(t, store.Delete(ctx, 999), "удаление отсутствующей записи — не ошибка")

		ids, err := store.ListUserIDs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{10, 30}, ids)

		_, found, err := store.Read(ctx, 20)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
