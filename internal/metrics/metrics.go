// Package metrics wraps the Prometheus collectors used by the request engine
// and the balance reconciler. Every collector lives on a private registry so
// several clients (and tests) can coexist in one process.
//
// All methods are safe on a nil *Collector, which records nothing.
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	registry *prometheus.Registry

	attempts     *prometheus.CounterVec
	retries      prometheus.Counter
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	reconciles   *prometheus.CounterVec
}

// NewCollector creates the collectors under namespace (default "propscan").
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "propscan"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "attempts_total",
			Help:      "HTTP attempts by outcome (ok, timeout, connection_refused, dns_failure, network_failure, canceled, http_status, parse_error)",
		},
		[]string{"outcome"},
	)

	c.retries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "retries_total",
			Help:      "Attempts re-issued after a retryable failure",
		},
	)

	c.calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "calls_total",
			Help:      "Logical calls by final result",
		},
		[]string{"result"},
	)

	c.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "call_duration_seconds",
			Help:      "Wall time of a logical call including backoff",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"timeout_class"},
	)

	c.reconciles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "reconcile_total",
			Help:      "Balance reconciliation actions (adopted, bootstrapped, ignored, deducted, fetch_failed, persist_failed)",
		},
		[]string{"action"},
	)

	c.registry.MustRegister(c.attempts, c.retries, c.calls, c.callDuration, c.reconciles)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Attempt(outcome string) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(outcome).Inc()
}

func (c *Collector) Retry() {
	if c == nil {
		return
	}
	c.retries.Inc()
}

func (c *Collector) Call(result, timeoutClass string, d time.Duration) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(result).Inc()
	c.callDuration.WithLabelValues(timeoutClass).Observe(d.Seconds())
}

func (c *Collector) Reconcile(action string) {
	if c == nil {
		return
	}
	c.reconciles.WithLabelValues(action).Inc()
}

// Summary renders counters as sorted "name{labels} value" lines for the CLI.
func (c *Collector) Summary() ([]string, error) {
	if c == nil {
		return nil, nil
	}

	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, name+" "+strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64))
		}
	}
	sort.Strings(lines)
	return lines, nil
}
