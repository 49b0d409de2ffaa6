package karma

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/karma-bot/internal/common"
	"serotonyl.ru/karma-bot/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		BuzzkillPositiveMax:       5,
		BuzzkillNegativeMax:       2,
		EnforceKarmaSpamDelay:     true,
		KarmaSpamDelay:            15,
		PreventSelfKarma:          true,
		EnableLeaderboard:         true,
		LeaderboardSize:           5,
		LeaderboardResolveWorkers: 4,
	}
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	ranker := NewRanker(store, staticResolver{}, 4, time.Second)
	return NewService(store, ranker, testConfig(), nil)
}

var bob = Mention{ID: 2, DisplayName: "Bob", Primary: "@bob"}

func msgFrom(author int64, text string, mentions ...Mention) Message {
	return Message{ChatID: -100, AuthorID: author, AuthorName: "author", Text: text, Mentions: mentions}
}

func TestServiceAdjust(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newSQLiteStore(t, clock)
	svc := newTestService(t, store)

	replies := svc.HandleMessage(ctx, msgFrom(1, "@bob +++", bob))
	assert.Equal(t, []string{"⭐ Bob: 3 очка"}, replies)

	karma, found, err := store.Read(ctx, 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), karma)
}

func TestServiceSpamDelay(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newSQLiteStore(t, clock)
	svc := newTestService(t, store)

	svc.HandleMessage(ctx, msgFrom(1, "@bob ++", bob))

	clock.Advance(10 * time.Second)
	replies := svc.HandleMessage(ctx, msgFrom(3, "@bob ++", bob))
	assert.Equal(t, []string{"⏳ Карму Bob можно менять не чаще раза в 15 секунд"}, replies)

	karma, _, err := store.Read(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), karma, "отклонённое изменение не записывается")

	clock.Advance(5 * time.Second)
	replies = svc.HandleMessage(ctx, msgFrom(3, "@bob ++", bob))
	assert.Equal(t, []string{"⭐ Bob: 4 очка"}, replies)
}

func TestServiceBuzzkill(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newSQLiteStore(t, clock)
	svc := newTestService(t, store)

	replies := svc.HandleMessage(ctx, msgFrom(1, "@bob ++++++++++", bob))
	assert.Equal(t, []string{
		"⭐ Bob: 5 очков",
		"🙅 Buzzkill: за одно сообщение не больше +5 очков",
	}, replies)

	clock.Advance(time.Minute)
	replies = svc.HandleMessage(ctx, msgFrom(1, "@bob -----", bob))
	require.Len(t, replies, 2)
	assert.Equal(t, "⭐ Bob: 3 очка", replies[0])

	karma, _, err := store.Read(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), karma)
}

func TestServiceSelfKarma(t *testing.T) {
	for _, text := range []string{"@bob +++", "@bob --"} {
		t.Run(text, func(t *testing.T) {
			ctx := context.Background()
			store := newSQLiteStore(t, newFakeClock())
			svc := newTestService(t, store)

			replies := svc.HandleMessage(ctx, msgFrom(2, text, bob))
			assert.Equal(t, []string{"⭐ Bob: 0 очков\n🚫 Нельзя менять карму самому себе"}, replies)

			_, found, err := store.Read(ctx, 2)
			require.NoError(t, err)
			assert.False(t, found, "попытка самому себе не создаёт запись")
		})
	}
}

func TestServiceQueryDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, newFakeClock())
	svc := newTestService(t, store)

	require.NoError(t, store.Create(ctx, 2, 21))

	// запрос про себя разрешён
	replies := svc.HandleMessage(ctx, msgFrom(2, "@bob karma", bob))
	assert.Equal(t, []string{"⭐ Bob: 21 очко"}, replies)

	// и не ограничен задержкой
	replies = svc.HandleMessage(ctx, msgFrom(1, "@bob karma", bob))
	assert.Equal(t, []string{"⭐ Bob: 21 очко"}, replies)

	ok, err := store.CanAdjust(ctx, 2, 15*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "запрос не трогает last_adjusted")

	_, found, err := store.Read(ctx, 3)
	require.NoError(t, err)
	assert.False(t, found)
	replies = svc.HandleMessage(ctx, msgFrom(1, "@carol karma", Mention{ID: 3, DisplayName: "Carol", Primary: "@carol"}))
	assert.Equal(t, []string{"⭐ Carol: 0 очков"}, replies)
	_, found, err = store.Read(ctx, 3)
	require.NoError(t, err)
	assert.False(t, found, "запрос не создаёт запись")
}

func TestServiceMentionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, newFakeClock())
	svc := newTestService(t, store)

	carol := Mention{ID: 3, DisplayName: "Carol", Primary: "@carol"}
	replies := svc.HandleMessage(ctx, msgFrom(1, "@bob ++ и @carol -- и @dave привет", bob, carol,
		Mention{ID: 4, DisplayName: "Dave", Primary: "@dave"}))
	assert.Equal(t, []string{"⭐ Bob: 2 очка", "⭐ Carol: -2 очка"}, replies)
}

// failingStore ломает Update, остальное берёт из настоящего хранилища.
type failingStore struct {
	Store
}

func (failingStore) Update(context.Context, int64, int64) error {
	return common.WrapStorage("karma.update", errors.New("disk full"))
}

func TestServiceStorageError(t *testing.T) {
	ctx := context.Background()
	store := failingStore{Store: newSQLiteStore(t, newFakeClock())}
	svc := newTestService(t, store)

	carol := Mention{ID: 3, DisplayName: "Carol", Primary: "@carol"}
	replies := svc.HandleMessage(ctx, msgFrom(1, "@bob ++ @carol karma", bob, carol))
	assert.Equal(t, []string{
		"❌ Не получилось обработать карму Bob, попробуйте позже",
		"⭐ Carol: 0 очков",
	}, replies)
}

func TestServiceOwnKarma(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, newFakeClock())
	svc := newTestService(t, store)

	require.NoError(t, store.Create(ctx, 1, 1234))
	text, err := svc.OwnKarma(ctx, 1, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "⭐ Твоя карма: 1 234 очка", text)
}

func TestServiceLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, newFakeClock())
	svc := newTestService(t, store)

	text, err := svc.Leaderboard(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, "📭 Пока ни у кого нет кармы", text)

	require.NoError(t, store.Create(ctx, 1, 10))
	require.NoError(t, store.Create(ctx, 2, -3))

	text, err = svc.Leaderboard(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, "🏆 Лучшая карма:\n"+
		"1. user1 — 10 очков\n"+
		"2. user2 — -3 очка\n"+
		"\n💀 Худшая карма:\n"+
		"1. user2 — -3 очка\n"+
		"2. user1 — 10 очков", text)
}
