package dbapi

import (
	"time"

	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the facade's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	entities prometheus.Gauge
	servers  prometheus.Gauge
	problems prometheus.Gauge
}

// NewMetrics registers the facade collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tangodb",
			Subsystem: "dbapi",
			Name:      "calls_total",
			Help:      "Facade calls by command and result.",
		}, []string{"op", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tangodb",
			Subsystem: "dbapi",
			Name:      "call_duration_seconds",
			Help:      "Facade call latency, lock wait included.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"op"}),
		entities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tangodb",
			Name:      "entities",
			Help:      "Live entries of the entity index at load time.",
		}),
		servers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tangodb",
			Name:      "servers",
			Help:      "Live entries of the server index at load time.",
		}),
		problems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tangodb",
			Name:      "load_problems",
			Help:      "Documents skipped or partially indexed by the last load.",
		}),
	}
}

func (m *Metrics) observeCall(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(op, resultOf(err)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) observeSource(src *datasource.Source) {
	if m == nil || src == nil {
		return
	}
	m.entities.Set(float64(src.Entities().Len()))
	m.servers.Set(float64(src.Servers().Len()))
	m.problems.Set(float64(len(src.Problems())))
}
