package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeaderboard struct {
	text  string
	err   error
	scope int64
}

func (f *fakeLeaderboard) Leaderboard(_ context.Context, scope int64) (string, error) {
	f.scope = scope
	return f.text, f.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

type fakeSweeper struct{}

func (fakeSweeper) SweepExpired() int { return 0 }

func TestSendDigest(t *testing.T) {
	lb := &fakeLeaderboard{text: "🏆 top"}
	sender := &fakeSender{}
	s := NewScheduler(Config{Timezone: "UTC", ChatID: -100}, lb, fakeSweeper{}, sender)

	require.NoError(t, s.SendDigest(context.Background()))
	assert.Equal(t, int64(-100), lb.scope)
	assert.Equal(t, []string{"🏆 top"}, sender.sent[-100])
}

func TestSendDigestError(t *testing.T) {
	lb := &fakeLeaderboard{err: errors.New("db down")}
	sender := &fakeSender{}
	s := NewScheduler(Config{Timezone: "UTC", ChatID: -100}, lb, fakeSweeper{}, sender)

	require.Error(t, s.SendDigest(context.Background()))
	assert.Empty(t, sender.sent)
}

func TestStartRejectsBadCron(t *testing.T) {
	s := NewScheduler(Config{Timezone: "UTC", DigestCron: "not a cron"}, &fakeLeaderboard{}, fakeSweeper{}, &fakeSender{})
	require.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(Config{Timezone: "Europe/Moscow", DigestCron: "0 20 * * 5"}, &fakeLeaderboard{}, fakeSweeper{}, &fakeSender{})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
