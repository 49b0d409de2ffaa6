// Package karma — leaderboard.go считает лучших и худших пользователей чата.
package karma

import (
	"cmp"
	"context"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/karma-bot/internal/metrics"
)

// MaxLeaderboardSize — верхняя граница размера лидерборда.
const MaxLeaderboardSize = 100

// Resolver превращает user ID в отображаемое имя внутри чата scope.
// Ошибка означает «пользователя в чате нет» (вышел, удалён) — это не сбой.
type Resolver interface {
	ResolveMember(ctx context.Context, scope int64, userID int64) (string, error)
}

// Ranker строит лидерборд по всем записям Store.
type Ranker struct {
	store    Store
	resolver Resolver
	workers  int
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewRanker создаёт ранжировщик. workers — сколько имён разрешаем одновременно,
// timeout — лимит на один запрос к Resolver (0 — без лимита).
func NewRanker(store Store, resolver Resolver, workers int, timeout time.Duration) *Ranker {
	if workers <= 0 {
		workers = 1
	}
	return &Ranker{store: store, resolver: resolver, workers: workers, timeout: timeout}
}

// WithMetrics включает метрики построения лидерборда.
func (r *Ranker) WithMetrics(m *metrics.Metrics) *Ranker {
	r.metrics = m
	return r
}

// Rank возвращает top и bottom списки размера max(1, min(size, 100, найдено)).
// Пользователи, которых Resolver не нашёл, молча выбрасываются.
// При равной карме сохраняется порядок, в котором ID вернуло хранилище.
// Если не нашли никого — оба списка пустые.
func (r *Ranker) Rank(ctx context.Context, scope int64, size int) (top, bottom []RankedUser, err error) {
	started := time.Now()
	unresolved := 0
	defer func() { r.metrics.Leaderboard(started, unresolved) }()

	ids, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	// По слоту на ID: порядок результата = порядок ID, независимо от того,
	// какая горутина закончила первой.
	slots := make([]*RankedUser, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, id := range ids {
		g.Go(func() error {
			name, ok := r.resolve(gctx, scope, id)
			if !ok {
				return nil
			}
			karma, _, err := r.store.Read(gctx, id)
			if err != nil {
				return err
			}
			slots[i] = &RankedUser{UserID: id, DisplayName: name, Karma: karma}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	users := make([]RankedUser, 0, len(slots))
	for _, u := range slots {
		if u != nil {
			users = append(users, *u)
		}
	}
	unresolved = len(ids) - len(users)
	if len(users) == 0 {
		return nil, nil, nil
	}

	n := EffectiveSize(size, len(users))

	top = slices.Clone(users)
	slices.SortStableFunc(top, func(a, b RankedUser) int { return cmp.Compare(b.Karma, a.Karma) })

	bottom = slices.Clone(users)
	slices.SortStableFunc(bottom, func(a, b RankedUser) int { return cmp.Compare(a.Karma, b.Karma) })

	return top[:n], bottom[:n], nil
}

// resolve спрашивает имя с отдельным таймаутом: один медленный запрос
// не должен держать весь лидерборд.
func (r *Ranker) resolve(ctx context.Context, scope int64, id int64) (string, bool) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	name, err := r.resolver.ResolveMember(callCtx, scope, id)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": id,
			"scope":   scope,
		}).Debug("Пользователь не найден в чате, пропускаем")
		return "", false
	}
	return name, true
}

// EffectiveSize = max(1, min(size, 100, resolved)).
func EffectiveSize(size, resolved int) int {
	return max(1, min(size, MaxLeaderboardSize, resolved))
}
