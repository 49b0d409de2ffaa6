package members_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/karma-bot/internal/common"
	"serotonyl.ru/karma-bot/internal/db/sqlite"
	"serotonyl.ru/karma-bot/internal/features/members"
)

func newService(t *testing.T) (*members.Service, *members.SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "members.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := members.NewSQLiteRepository(db)
	return members.NewService(repo), repo
}

func TestRememberAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Remember(ctx, 42, "@Alice", "Alice", "Smith"))

	m, err := svc.ResolveUsername(ctx, "@alice")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, int64(42), m.UserID)
	assert.Equal(t, "Alice", m.Username)
	assert.Equal(t, "Alice Smith", m.DisplayName())

	isMember, err := svc.IsMember(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestRememberUpdatesUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Remember(ctx, 7, "old_name", "Bob", ""))
	require.NoError(t, svc.Remember(ctx, 7, "new_name", "Bob", ""))

	m, err := svc.ResolveUsername(ctx, "old_name")
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = svc.ResolveUsername(ctx, "new_name")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, int64(7), m.UserID)
}

func TestUnknownMember(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	m, err := svc.ResolveUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = repo.GetByUserID(ctx, 100)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	assert.Equal(t, "Гость", svc.DisplayName(ctx, 100, "Гость"))
}

func TestDisplayNameFallbacks(t *testing.T) {
	assert.Equal(t, "@nick", (&members.Member{UserID: 1, Username: "nick"}).DisplayName())
	assert.Equal(t, "id5", (&members.Member{UserID: 5}).DisplayName())
}
