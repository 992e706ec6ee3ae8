// Package metrics provides Prometheus metrics for data provider requests,
// entity saves, field rule evaluations and persisted store writes.
//
// A nil *Collector is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crudkit"

// Save outcomes.
const (
	SaveSucceeded = "saved"
	SaveFailed    = "failed"
	SaveNothing   = "returned_nothing"
	SaveInvalid   = "invalid"
	SaveRejected  = "rejected_in_flight"
)

// Collector holds all Prometheus metrics of the toolkit.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SavesTotal *prometheus.CounterVec

	RuleEvaluations *prometheus.CounterVec

	StoreWrites        *prometheus.CounterVec
	StorePersistErrors *prometheus.CounterVec
	StoreRestoreErrors *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of data provider requests",
			},
			[]string{"resource", "operation", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Data provider request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"resource", "operation"},
		),
		SavesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total number of edit view saves by outcome",
			},
			[]string{"resource", "outcome"},
		),
		RuleEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total number of field rule evaluations by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		StoreWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_writes_total",
				Help:      "Total number of store writes, split by whether the snapshot changed",
			},
			[]string{"store", "changed"},
		),
		StorePersistErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_persist_errors_total",
				Help:      "Total number of failed writes to durable storage",
			},
			[]string{"store"},
		),
		StoreRestoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_restore_errors_total",
				Help:      "Total number of failed restores from durable storage",
			},
			[]string{"store"},
		),
	}
}

// ObserveRequest records one provider request. err decides the outcome label.
func (c *Collector) ObserveRequest(resource, operation string, started time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.RequestsTotal.WithLabelValues(resource, operation, outcome).Inc()
	c.RequestDuration.WithLabelValues(resource, operation).Observe(time.Since(started).Seconds())
}

// ObserveSave records the outcome of an edit view save.
func (c *Collector) ObserveSave(resource, outcome string) {
	if c == nil {
		return
	}
	c.SavesTotal.WithLabelValues(resource, outcome).Inc()
}

// ObserveRule counts one rule evaluation. Rules that fail to run count as
// errors; a rule that runs and rejects the value is still ok.
func (c *Collector) ObserveRule(backend string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.RuleEvaluations.WithLabelValues(backend, outcome).Inc()
}

// ObserveStoreWrite records a store write and whether it changed the snapshot.
func (c *Collector) ObserveStoreWrite(store string, changed bool) {
	if c == nil {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	c.StoreWrites.WithLabelValues(store, label).Inc()
}

func (c *Collector) StorePersistFailed(store string) {
	if c == nil {
		return
	}
	c.StorePersistErrors.WithLabelValues(store).Inc()
}

func (c *Collector) StoreRestoreFailed(store string) {
	if c == nil {
		return
	}
	c.StoreRestoreErrors.WithLabelValues(store).Inc()
}
