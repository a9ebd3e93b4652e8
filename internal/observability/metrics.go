package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus instrumentation of the optimization
// pipeline: solve latency and outcomes per backend, plus the size of the
// most recently dispatched model.
type Metrics struct {
	gatherer prometheus.Gatherer

	SolveDuration *prometheus.HistogramVec
	Solves        *prometheus.CounterVec

	ModelVariables   prometheus.Gauge
	ModelConstraints prometheus.Gauge
}

// NewMetrics registers the pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registration is idempotent: an already-registered collector of the same
// shape is reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gsopt_solve_duration_seconds",
		Help:    "Wall-clock duration of one backend solve, labeled by backend.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"backend"})
	durations, err := registerHistogramVec(reg, durations, "gsopt_solve_duration_seconds")
	if err != nil {
		return nil, err
	}

	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gsopt_solves_total",
		Help: "Total number of completed solves, labeled by backend and normalized status.",
	}, []string{"backend", "status"})
	solves, err = registerCounterVec(reg, solves, "gsopt_solves_total")
	if err != nil {
		return nil, err
	}

	variables, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gsopt_model_variables",
		Help: "Variable count of the most recently dispatched model.",
	}), "gsopt_model_variables")
	if err != nil {
		return nil, err
	}
	constraints, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gsopt_model_constraints",
		Help: "Constraint count of the most recently dispatched model.",
	}), "gsopt_model_constraints")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:         gatherer,
		SolveDuration:    durations,
		Solves:           solves,
		ModelVariables:   variables,
		ModelConstraints: constraints,
	}, nil
}

// ObserveSolve records the outcome and duration of one backend solve.
func (m *Metrics) ObserveSolve(backend, status string, d time.Duration) {
	if m == nil {
		return
	}
	if m.SolveDuration != nil {
		m.SolveDuration.WithLabelValues(backend).Observe(d.Seconds())
	}
	if m.Solves != nil {
		m.Solves.WithLabelValues(backend, status).Inc()
	}
}

// ObserveModelSize records the dimensions of a model about to be solved.
func (m *Metrics) ObserveModelSize(variables, constraints int) {
	if m == nil {
		return
	}
	if m.ModelVariables != nil {
		m.ModelVariables.Set(float64(variables))
	}
	if m.ModelConstraints != nil {
		m.ModelConstraints.Set(float64(constraints))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
