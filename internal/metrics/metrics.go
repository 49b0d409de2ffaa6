// Package metrics описывает Prometheus-метрики бота.
// Все методы безопасны на nil *Metrics: в тестах метрики можно не создавать.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Результаты изменения кармы (лейбл result у karmabot_adjustments_total).
const (
	ResultApplied = "applied"
	ResultClamped = "clamped"
	ResultSelf    = "self"
	ResultSpam    = "spam"
	ResultError   = "error"
)

// Metrics — набор метрик бота.
type Metrics struct {
	Registry *prometheus.Registry

	adjustments        *prometheus.CounterVec
	queries            prometheus.Counter
	updates            *prometheus.CounterVec
	leaderboardSeconds prometheus.Histogram
	unresolved         prometheus.Counter
}

// New создаёт метрики в собственном реестре (плюс стандартные go/process коллекторы).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		adjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karmabot_adjustments_total",
				Help: "Karma adjustment attempts by result",
			},
			[]string{"result"},
		),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karmabot_queries_total",
			Help: "Karma queries answered",
		}),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karmabot_updates_total",
				Help: "Telegram updates received by kind",
			},
			[]string{"kind"},
		),
		leaderboardSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "karmabot_leaderboard_duration_seconds",
			Help:    "Time to build a leaderboard, including member resolution",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karmabot_leaderboard_unresolved_total",
			Help: "Users dropped from leaderboards because they are no longer chat members",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.adjustments, m.queries, m.updates, m.leaderboardSeconds, m.unresolved,
	)
	return m
}

func (m *Metrics) Adjustment(result string) {
	if m == nil {
		return
	}
	m.adjustments.WithLabelValues(result).Inc()
}

func (m *Metrics) Query() {
	if m == nil {
		return
	}
	m.queries.Inc()
}

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

// Leaderboard записывает длительность построения и число выброшенных пользователей.
func (m *Metrics) Leaderboard(started time.Time, unresolved int) {
	if m == nil {
		return
	}
	m.leaderboardSeconds.Observe(time.Since(started).Seconds())
	m.unresolved.Add(float64(unresolved))
}
