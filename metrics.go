package leafmap

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "leafmap"
	subsystem = "session"
)

// Metrics records what Session.Remap does.
type Metrics struct {
	leaves   prometheus.Gauge
	skipped  *prometheus.CounterVec
	remaps   prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates the session metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		leaves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "leaves",
			Help:      "Number of leaves in the most recently built table.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skipped_members_total",
			Help:      "Members left out of mapping passes. Broken down by reason.",
		}, []string{"reason"}),
		remaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "remaps_total",
			Help:      "Number of completed remaps.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "remap_duration_seconds",
			Help:      "Time taken to rebuild the leaf table.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.leaves, m.skipped, m.remaps, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(t *Table, start time.Time) {
	if m == nil {
		return
	}
	m.remaps.Inc()
	m.leaves.Set(float64(t.Len()))
	m.duration.Observe(time.Since(start).Seconds())
	for _, err := range t.Skipped() {
		m.skipped.WithLabelValues(skipReason(err)).Inc()
	}
}

// skipReason gives a metric label for an error recorded in Result.Skipped.
func skipReason(err error) string {
	var (
		dimErr       *DimensionalityError
		typeErr      *UnsupportedTypeError
		containerErr *UnsupportedContainerError
		unknownErr   *UnknownTypeError
		recursiveErr *RecursiveTypeError
	)
	switch {
	case errors.As(err, &dimErr):
		return "dimensionality"
	case errors.As(err, &typeErr):
		return "unsupported_type"
	case errors.As(err, &containerErr):
		return "unsupported_container"
	case errors.As(err, &unknownErr):
		return "unknown_type"
	case errors.As(err, &recursiveErr):
		return "recursive_type"
	default:
		return "other"
	}
}
