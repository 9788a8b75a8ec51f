// Package metrics exports probe and evaluation counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
)

const namespace = "arena"

// Observer implements probe.Observer and evaluator.Observer. A nil
// *Observer records nothing.
type Observer struct {
	probes               *prometheus.CounterVec
	probeDuration        *prometheus.HistogramVec
	evaluations          *prometheus.CounterVec
	evaluationDuration   prometheus.Histogram
	submissionUpdateErrs prometheus.Counter
}

// New registers the arena collectors on reg, reusing collectors that are
// already registered. A nil reg means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Endpoint probes by outcome.",
		}, []string{"outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Round-trip latency of endpoint probes.",
			Buckets:   []float64{.05, .1, .2, .5, 1, 2, 3, 5, 10},
		}, []string{"outcome"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluations by status.",
		}, []string{"status"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of a full evaluation including persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		submissionUpdateErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_update_failures_total",
			Help:      "Submission bookkeeping writes that failed after a successful score write.",
		}),
	}

	var err error
	if o.probes, err = register(reg, o.probes); err != nil {
		return nil, err
	}
	if o.probeDuration, err = register(reg, o.probeDuration); err != nil {
		return nil, err
	}
	if o.evaluations, err = register(reg, o.evaluations); err != nil {
		return nil, err
	}
	if o.evaluationDuration, err = register(reg, o.evaluationDuration); err != nil {
		return nil, err
	}
	if o.submissionUpdateErrs, err = register(reg, o.submissionUpdateErrs); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("registering collector: %w", err)
}

func (o *Observer) ObserveProbe(kind probe.ErrorKind, latency time.Duration) {
	if o == nil {
		return
	}
	o.probes.WithLabelValues(kind.String()).Inc()
	o.probeDuration.WithLabelValues(kind.String()).Observe(latency.Seconds())
}

func (o *Observer) ObserveEvaluation(status string, duration time.Duration) {
	if o == nil {
		return
	}
	o.evaluations.WithLabelValues(status).Inc()
	o.evaluationDuration.Observe(duration.Seconds())
}

func (o *Observer) ObserveSubmissionUpdateFailure() {
	if o == nil {
		return
	}
	o.submissionUpdateErrs.Inc()
}

var _ probe.Observer = (*Observer)(nil)
