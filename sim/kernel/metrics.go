package kernel

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the kernel's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	UncaughtTotal    *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	SimulatedTime    prometheus.Gauge
	ActiveModels     prometheus.Gauge
	StepDuration     prometheus.Histogram
}

// NewMetrics registers the kernel metrics against the provided registerer.
// Collectors that are already registered are reused, so several kernels in
// one process share them.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	uncaught, err := registerCounterVec(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devs_uncaught_messages_total",
			Help: "Messages that matched no coupling and were absorbed by the catch-all sink.",
		},
		[]string{"kernel", "src", "port"},
	), "devs_uncaught_messages_total")
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devs_transitions_total",
			Help: "Transitions executed by the kernel, by kind.",
		},
		[]string{"kernel", "kind"},
	), "devs_transitions_total")
	if err != nil {
		return nil, err
	}

	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "devs_simulated_time_seconds",
		Help: "Current value of the global simulation clock.",
	}), "devs_simulated_time_seconds")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "devs_active_models",
		Help: "Number of active top-level models.",
	}), "devs_active_models")
	if err != nil {
		return nil, err
	}

	stepHist, err := registerHistogram(reg, prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devs_step_duration_seconds",
			Help:    "Wall-clock duration of one simulation quantum.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		},
	), "devs_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		UncaughtTotal:    uncaught,
		TransitionsTotal: transitions,
		SimulatedTime:    simTime,
		ActiveModels:     active,
		StepDuration:     stepHist,
	}, nil
}

func (m *Metrics) incUncaught(kernel, src, port string) {
	if m == nil {
		return
	}

	m.UncaughtTotal.WithLabelValues(kernel, src, port).Inc()
}

func (m *Metrics) incTransition(kernel, kind string) {
	if m == nil {
		return
	}

	m.TransitionsTotal.WithLabelValues(kernel, kind).Inc()
}

func (m *Metrics) observeStep(now float64, active int, d time.Duration) {
	if m == nil {
		return
	}

	m.SimulatedTime.Set(now)
	m.ActiveModels.Set(float64(active))
	m.StepDuration.Observe(d.Seconds())
}

func registerCounterVec(
	reg prometheus.Registerer,
	c *prometheus.CounterVec,
	name string,
) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}

			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}

		return nil, err
	}

	return c, nil
}

func registerGauge(
	reg prometheus.Registerer,
	g prometheus.Gauge,
	name string,
) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}

			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}

		return nil, err
	}

	return g, nil
}

func registerHistogram(
	reg prometheus.Registerer,
	h prometheus.Histogram,
	name string,
) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}

			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}

		return nil, err
	}

	return h, nil
}
