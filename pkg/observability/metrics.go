package observability

import (
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jackpatch"

// Metrics holds the patcher collectors.
type Metrics struct {
	ConnectRequests *prometheus.CounterVec
	Passes          *prometheus.CounterVec
	Dirty           prometheus.Gauge
	SessionOps      *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_requests_total",
				Help:      "Connect requests handed to the backend.",
			},
			[]string{"kind", "result"},
		),
		Passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_passes_total",
				Help:      "Reconciliation passes by outcome.",
			},
			[]string{"outcome"},
		),
		Dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dirty",
			Help:      "1 while the live graph diverges from the saved patch.",
		}),
		SessionOps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_operation_duration_seconds",
				Help:      "Duration of open and save operations.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"operation", "result"},
		),
	}
	reg.MustRegister(m.ConnectRequests, m.Passes, m.Dirty, m.SessionOps)
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnConnectRequest: func(e *domain.ConnectEvent) {
			kind := "reconcile"
			if e.Bulk {
				kind = "bulk"
			}
			m.ConnectRequests.WithLabelValues(kind, result(e.Err)).Inc()
		},
		OnPass: func(e *domain.PassEvent) {
			outcome := "settled"
			switch {
			case e.Issued:
				outcome = "issued"
			case e.Pending:
				outcome = "waiting"
			}
			m.Passes.WithLabelValues(outcome).Inc()
		},
		OnDirtyChange: func(e *domain.DirtyEvent) {
			if e.Dirty {
				m.Dirty.Set(1)
			} else {
				m.Dirty.Set(0)
			}
		},
		OnOpen: func(e *domain.SessionEvent) {
			m.SessionOps.WithLabelValues("open", result(e.Err)).Observe(e.Duration.Seconds())
		},
		OnSave: func(e *domain.SessionEvent) {
			m.SessionOps.WithLabelValues("save", result(e.Err)).Observe(e.Duration.Seconds())
		},
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
