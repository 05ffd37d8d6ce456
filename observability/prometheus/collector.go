// File: observability/prometheus/collector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Prometheus collector reading JobSystem.Stats() at scrape time.

package prometheus

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-jobs/core/jobs"
	prom "github.com/prometheus/client_golang/prometheus"
)

// StatsProvider supplies scheduler snapshots.
type StatsProvider interface {
	Stats() jobs.Stats
}

type statMetric struct {
	desc  *prom.Desc
	kind  prom.ValueType
	value func(jobs.Stats) float64
}

// Collector exports one JobSystem's counters. It holds no state between
// scrapes.
type Collector struct {
	provider StatsProvider
	metrics  []statMetric
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector builds a collector; namespace defaults to "hioload_jobs".
func NewCollector(namespace string, provider StatsProvider) *Collector {
	if namespace == "" {
		namespace = "hioload_jobs"
	}
	gauge := func(name, help string, fn func(jobs.Stats) float64) statMetric {
		return statMetric{prom.NewDesc(prom.BuildFQName(namespace, "", name), help, nil, nil), prom.GaugeValue, fn}
	}
	counter := func(name, help string, fn func(jobs.Stats) float64) statMetric {
		return statMetric{prom.NewDesc(prom.BuildFQName(namespace, "", name), help, nil, nil), prom.CounterValue, fn}
	}
	return &Collector{
		provider: provider,
		metrics: []statMetric{
			gauge("threads", "Number of pool worker threads.", func(s jobs.Stats) float64 { return float64(s.Threads) }),
			gauge("adopted_threads", "Goroutines currently adopted.", func(s jobs.Stats) float64 { return float64(s.AdoptedThreads) }),
			gauge("active_tasks", "Tasks submitted and not yet picked up.", func(s jobs.Stats) float64 { return float64(s.ActiveTasks) }),
			gauge("queued_tasks", "Tasks sitting in deques and the injection queue.", func(s jobs.Stats) float64 { return float64(s.QueuedTasks) }),
			gauge("pool_in_use", "Task slots currently allocated.", func(s jobs.Stats) float64 { return float64(s.PoolInUse) }),
			counter("tasks_executed_total", "Tasks executed.", func(s jobs.Stats) float64 { return float64(s.Executed) }),
			counter("tasks_stolen_total", "Tasks taken from another thread's deque.", func(s jobs.Stats) float64 { return float64(s.Stolen) }),
			counter("steal_misses_total", "Steal attempts that found the victim empty.", func(s jobs.Stats) float64 { return float64(s.StealMisses) }),
			counter("tasks_injected_total", "Tasks submitted by goroutines outside the pool.", func(s jobs.Stats) float64 { return float64(s.Injected) }),
			counter("idle_sleeps_total", "Times a thread blocked for lack of work.", func(s jobs.Stats) float64 { return float64(s.Sleeps) }),
			counter("pool_exhausted_total", "Task creations refused by a full pool.", func(s jobs.Stats) float64 { return float64(s.PoolExhausted) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	st := c.provider.Stats()
	for _, m := range c.metrics {
		ch <- prom.MustNewConstMetric(m.desc, m.kind, m.value(st))
	}
}

// Register registers c, returning the collector already registered under the
// same descriptors if there is one.
func Register(reg prom.Registerer, c *Collector) (*Collector, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	return registerCollector(reg, c)
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
