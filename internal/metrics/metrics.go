// Package metrics exports Prometheus instrumentation for objectives.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
	"github.com/copyleftdev/bbdob/internal/objective/nasbench"
)

const namespace = "bbdob"

// Collector holds the metric vectors shared by every instrumented objective.
type Collector struct {
	evaluated  *prometheus.CounterVec
	violations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewCollector registers the objective metrics on reg. Registering on a
// registry that already holds them reuses the existing vectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	labels := []string{"objective"}

	evaluated, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_evaluated_total",
		Help:      "Number of candidates scored.",
	}, labels))
	if err != nil {
		return nil, err
	}
	violations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contract_violations_total",
		Help:      "Number of evaluations rejected for malformed input.",
	}, labels))
	if err != nil {
		return nil, err
	}
	failures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluation_failures_total",
		Help:      "Number of evaluations that failed for reasons other than malformed input.",
	}, labels))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Latency of a population evaluation.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, labels))
	if err != nil {
		return nil, err
	}

	return &Collector{
		evaluated:  evaluated,
		violations: violations,
		failures:   failures,
		latency:    latency,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// Instrument wraps o with the metrics registered on reg.
func Instrument(o objective.Objective, reg prometheus.Registerer) (objective.Objective, error) {
	c, err := NewCollector(reg)
	if err != nil {
		return nil, err
	}
	return c.Instrument(o), nil
}

// Instrument wraps o. The wrapper implements objective.IndexEvaluator when
// o does.
func (c *Collector) Instrument(o objective.Objective) objective.Objective {
	in := &instrumented{Objective: o, c: c, name: o.Name()}
	if ie, ok := o.(objective.IndexEvaluator); ok {
		return &instrumentedIndex{instrumented: in, ie: ie}
	}
	return in
}

// Unwrap returns the objective behind an instrumented wrapper, or o itself.
func Unwrap(o objective.Objective) objective.Objective {
	for {
		w, ok := o.(interface{ Unwrap() objective.Objective })
		if !ok {
			return o
		}
		o = w.Unwrap()
	}
}

type instrumented struct {
	objective.Objective
	c    *Collector
	name string
}

func (w *instrumented) Unwrap() objective.Objective { return w.Objective }

func (w *instrumented) Evaluate(t *encoding.Tensor) (*objective.Result, error) {
	start := time.Now()
	res, err := w.Objective.Evaluate(t)
	w.observe(start, res, err)
	return res, err
}

// EvaluateDeferred forwards to the wrapped objective's deferred path, or
// evaluates eagerly with nothing left to commit.
func (w *instrumented) EvaluateDeferred(t *encoding.Tensor) (*objective.Result, func(), error) {
	d, ok := w.Objective.(objective.DeferredEvaluator)
	if !ok {
		res, err := w.Evaluate(t)
		return res, nil, err
	}
	start := time.Now()
	res, commit, err := d.EvaluateDeferred(t)
	w.observe(start, res, err)
	return res, commit, err
}

// ObserveRejection counts a batch rejected before it reached Evaluate.
func (w *instrumented) ObserveRejection(err error) {
	if objective.IsContractViolation(err) {
		w.c.violations.WithLabelValues(w.name).Inc()
	} else {
		w.c.failures.WithLabelValues(w.name).Inc()
	}
	if ro, ok := w.Objective.(objective.RejectionObserver); ok {
		ro.ObserveRejection(err)
	}
}

func (w *instrumented) observe(start time.Time, res *objective.Result, err error) {
	w.c.latency.WithLabelValues(w.name).Observe(time.Since(start).Seconds())
	switch {
	case objective.IsContractViolation(err):
		w.c.violations.WithLabelValues(w.name).Inc()
	case err != nil:
		w.c.failures.WithLabelValues(w.name).Inc()
	default:
		w.c.evaluated.WithLabelValues(w.name).Add(float64(len(res.Fitness)))
	}
}

type instrumentedIndex struct {
	*instrumented
	ie objective.IndexEvaluator
}

func (w *instrumentedIndex) EvaluateIndices(x [][]int) (*objective.Result, error) {
	start := time.Now()
	res, err := w.ie.EvaluateIndices(x)
	w.observe(start, res, err)
	return res, err
}

// WatchClock exports the simulated training time of c as a gauge.
func WatchClock(reg prometheus.Registerer, c *nasbench.Clock) error {
	_, err := register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "nasbench",
		Name:      "training_time_seconds",
		Help:      "Simulated training time of every cell scored.",
	}, c.Total))
	return err
}
