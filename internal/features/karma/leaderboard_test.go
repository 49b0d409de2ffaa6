package karma

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"serotonyl.ru/karma-bot/internal/common"
	"serotonyl.ru/karma-bot/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore — Store в памяти с фиксированным порядком ListUserIDs.
type memStore struct {
	mu      sync.Mutex
	order   []int64
	karma   map[int64]int64
	listErr error
	readErr error
}

func newMemStore(pairs ...int64) *memStore {
	s := &memStore{karma: make(map[int64]int64)}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.order = append(s.order, pairs[i])
		s.karma[pairs[i]] = pairs[i+1]
	}
	return s
}

func (s *memStore) Create(_ context.Context, id, initial int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.karma[id]; !ok {
		s.order = append(s.order, id)
		s.karma[id] = initial
	}
	return nil
}

func (s *memStore) Read(_ context.Context, id int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return 0, false, s.readErr
	}
	k, ok := s.karma[id]
	return k, ok, nil
}

func (s *memStore) Update(_ context.Context, id, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.karma[id]; !ok {
		return common.ErrKarmaNotFound
	}
	s.karma[id] += delta
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.karma, id)
	return nil
}

func (s *memStore) CanAdjust(context.Context, int64, time.Duration) (bool, error) {
	return true, nil
}

func (s *memStore) ListUserIDs(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]int64(nil), s.order...), nil
}

// staticResolver называет всех «user<ID>».
type staticResolver struct{}

func (staticResolver) ResolveMember(_ context.Context, _ int64, id int64) (string, error) {
	return fmt.Sprintf("user%d", id), nil
}

// mapResolver знает только перечисленных; остальные — ErrMemberUnresolved.
type mapResolver struct {
	names map[int64]string
	delay time.Duration
	calls atomic.Int32
}

func (r *mapResolver) ResolveMember(ctx context.Context, _ int64, id int64) (string, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	name, ok := r.names[id]
	if !ok {
		return "", common.ErrMemberUnresolved
	}
	return name, nil
}

func names(users []RankedUser) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.DisplayName
	}
	return out
}

func TestRankTiesKeepResolutionOrder(t *testing.T) {
	// A=10, B=-3, C=10, D=0; размер 2
	store := newMemStore(1, 10, 2, -3, 3, 10, 4, 0)
	resolver := &mapResolver{names: map[int64]string{1: "A", 2: "B", 3: "C", 4: "D"}}
	ranker := NewRanker(store, resolver, 3, time.Second)

	top, bottom, err := ranker.Rank(context.Background(), -100, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, names(top))
	assert.Equal(t, []string{"B", "D"}, names(bottom))
	assert.Equal(t, int32(4), resolver.calls.Load())
}

func TestRankDropsUnresolved(t *testing.T) {
	store := newMemStore(1, 5, 2, 7, 3, -1)
	resolver := &mapResolver{names: map[int64]string{1: "A", 3: "C"}}
	ranker := NewRanker(store, resolver, 2, time.Second)

	top, bottom, err := ranker.Rank(context.Background(), -100, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, names(top))
	assert.Equal(t, []string{"C", "A"}, names(bottom))
}

func TestRankNobodyResolved(t *testing.T) {
	store := newMemStore(1, 5, 2, 7)
	ranker := NewRanker(store, &mapResolver{}, 2, time.Second)

	top, bottom, err := ranker.Rank(context.Background(), -100, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.Empty(t, bottom)
}

func TestRankEmptyStore(t *testing.T) {
	ranker := NewRanker(newMemStore(), staticResolver{}, 2, time.Second)

	top, bottom, err := ranker.Rank(context.Background(), -100, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.Empty(t, bottom)
}

func TestRankStoreErrors(t *testing.T) {
	store := newMemStore(1, 5)
	store.listErr = errors.New("list failed")
	_, _, err := NewRanker(store, staticResolver{}, 2, time.Second).Rank(context.Background(), -100, 5)
	require.Error(t, err)

	store = newMemStore(1, 5, 2, 6)
	store.readErr = errors.New("read failed")
	_, _, err = NewRanker(store, staticResolver{}, 2, time.Second).Rank(context.Background(), -100, 5)
	require.Error(t, err)
}

// leaderboardObservations — сколько раз замерялось построение лидерборда.
func leaderboardObservations(t *testing.T, m *metrics.Metrics) uint64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "karmabot_leaderboard_duration_seconds" {
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func TestRankObservesEveryOutcome(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()

	_, _, err := NewRanker(newMemStore(), staticResolver{}, 2, time.Second).WithMetrics(m).Rank(ctx, -100, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, leaderboardObservations(t, m), "пустое хранилище")

	failing := newMemStore(1, 5)
	failing.listErr = errors.New("list failed")
	_, _, err = NewRanker(failing, staticResolver{}, 2, time.Second).WithMetrics(m).Rank(ctx, -100, 5)
	require.Error(t, err)
	assert.EqualValues(t, 2, leaderboardObservations(t, m), "ошибка хранилища")

	_, _, err = NewRanker(newMemStore(1, 5), staticResolver{}, 2, time.Second).WithMetrics(m).Rank(ctx, -100, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, leaderboardObservations(t, m))
}

func TestRankResolveTimeout(t *testing.T) {
	store := newMemStore(1, 5, 2, 7)
	resolver := &mapResolver{names: map[int64]string{1: "A", 2: "B"}, delay: time.Second}
	ranker := NewRanker(store, resolver, 2, 10*time.Millisecond)

	started := time.Now()
	top, _, err := ranker.Rank(context.Background(), -100, 5)
	require.NoError(t, err)
	assert.Empty(t, top, "не ответившие вовремя считаются не найденными")
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestRankSizeIsBounded(t *testing.T) {
	var pairs []int64
	for id := int64(1); id <= 150; id++ {
		pairs = append(pairs, id, id)
	}
	ranker := NewRanker(newMemStore(pairs...), staticResolver{}, 16, time.Second)

	top, bottom, err := ranker.Rank(context.Background(), -100, 1000)
	require.NoError(t, err)
	assert.Len(t, top, MaxLeaderboardSize)
	assert.Len(t, bottom, MaxLeaderboardSize)
	assert.Equal(t, int64(150), top[0].Karma)
	assert.Equal(t, int64(1), bottom[0].Karma)
}

func TestEffectiveSize(t *testing.T) {
	tests := []struct {
		size, resolved, want int
	}{
		{size: 5, resolved: 10, want: 5},
		{size: 5, resolved: 3, want: 3},
		{size: 500, resolved: 300, want: 100},
		{size: 0, resolved: 3, want: 1},
		{size: 5, resolved: 0, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectiveSize(tt.size, tt.resolved), "size=%d resolved=%d", tt.size, tt.resolved)
	}
}
