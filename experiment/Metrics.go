package experiment

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samuelfneumann/rlcode/policy"
)

// metrics publishes the Info returned by each learning step
type metrics struct {
	info       *prometheus.GaugeVec
	iterations prometheus.Counter
	episodes   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rlcode_learn_info",
				Help: "Latest numeric value of each key of the learning step info",
			},
			[]string{"key"},
		),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rlcode_learn_iterations_total",
			Help: "Number of completed learning steps",
		}),
		episodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rlcode_episodes",
			Help: "Number of completed environment episodes",
		}),
	}

	for _, c := range []prometheus.Collector{m.info, m.iterations, m.episodes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("newMetrics: %w", err)
		}
	}
	return m, nil
}

// observe records a completed learning step
func (m *metrics) observe(info policy.Info, episodes int) {
	m.iterations.Inc()
	m.episodes.Set(float64(episodes))
	for key, value := range info {
		if f, ok := Float(value); ok {
			m.info.WithLabelValues(key).Set(f)
		}
	}
}

// Float converts a numeric or boolean Info value to a float64. It
// returns false for any other type.
func Float(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
