package updates

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// outcome is what the runner did with one message.
type outcome string

const (
	// applied: the registry now serves the event's revision, or no longer
	// serves the layer for a delete.
	outcomeApplied outcome = "applied"
	// stale: an equal or newer revision was already applied or published.
	outcomeStale outcome = "stale"
	// rejected: undecodable, invalid, or a subdivision that does not build.
	// The offset is marked anyway.
	outcomeRejected outcome = "rejected"
	// failed: left unmarked for redelivery.
	outcomeFailed outcome = "failed"
)

const opUnknown = "unknown"

type metricSet struct {
	events   *prometheus.CounterVec
	apply    *prometheus.HistogramVec
	lag      *prometheus.GaugeVec
	revision *prometheus.GaugeVec
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "updates_events_total",
			Help: "Subdivision update messages by op and outcome.",
		}, []string{"op", "outcome"}),
		apply: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "updates_apply_seconds",
			Help:    "Time from receiving an update message to its outcome.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		lag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "updates_lag_seconds",
			Help: "Now minus the timestamp of the last message seen on each partition.",
		}, []string{"partition"}),
		revision: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "updates_applied_revision",
			Help: "Last revision applied from the stream per layer; 0 after a delete.",
		}, []string{"layer"}),
	}
	if r != nil {
		r.MustRegister(m.events, m.apply, m.lag, m.revision)
	}
	return m
}

func (m *metricSet) done(op string, o outcome, since time.Time) {
	if op == "" {
		op = opUnknown
	}
	m.events.WithLabelValues(op, string(o)).Inc()
	m.apply.WithLabelValues(op).Observe(time.Since(since).Seconds())
}

func (m *metricSet) seen(partition int32, ts time.Time) {
	if ts.IsZero() {
		return
	}
	m.lag.WithLabelValues(strconv.Itoa(int(partition))).Set(time.Since(ts).Seconds())
}

func (m *metricSet) applied(ev Event) {
	if ev.Op == OpDelete {
		m.revision.WithLabelValues(ev.Layer).Set(0)
		return
	}
	m.revision.WithLabelValues(ev.Layer).Set(float64(ev.Revision))
}
