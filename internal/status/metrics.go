// Package status exposes poll loop health over HTTP: Prometheus metrics
// and a JSON snapshot of the poller.
package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nhle/gh-notifier/internal/source"
	"github.com/nhle/gh-notifier/internal/sync"
)

const namespace = "ghnotifier"

var (
	pollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Poll cycles by outcome",
		},
		[]string{"account", "outcome"},
	)

	pollInterval = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "interval_seconds",
			Help:      "Current wait between poll cycles",
		},
		[]string{"account"},
	)

	pollEmptyStreak = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "empty_streak",
			Help:      "Consecutive poll cycles that yielded nothing",
		},
		[]string{"account"},
	)

	pollLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch",
		},
		[]string{"account"},
	)

	fetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Failed fetches by error kind",
		},
		[]string{"account", "kind"},
	)

	notificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "notifications_delivered_total",
			Help:      "Notifications handed to the sink",
		},
		[]string{"account"},
	)

	deliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "delivery_errors_total",
			Help:      "Batches the sink failed to accept",
		},
		[]string{"account"},
	)
)

// Metrics is a sync.Reporter that records poll loop events as Prometheus
// metrics.
type Metrics struct{}

var _ sync.Reporter = Metrics{}

func (Metrics) CadenceChanged(account string, change sync.CadenceChange) {
	pollInterval.WithLabelValues(account).Set(change.To.Seconds())
	pollEmptyStreak.WithLabelValues(account).Set(float64(change.Streak))

	// Failures are counted in FetchFailed.
	if change.Trigger == sync.TriggerFailure {
		return
	}
	pollCycles.WithLabelValues(account, "success").Inc()
	pollLastSuccess.WithLabelValues(account).SetToCurrentTime()
}

func (Metrics) FetchFailed(account string, err *source.FetchError) {
	pollCycles.WithLabelValues(account, "failure").Inc()
	fetchFailures.WithLabelValues(account, err.Kind.String()).Inc()
}

func (Metrics) BatchDelivered(batch sync.Batch, err error) {
	if err != nil {
		deliveryErrors.WithLabelValues(batch.Account).Inc()
		return
	}
	notificationsDelivered.WithLabelValues(batch.Account).Add(float64(len(batch.Items)))
}
