package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics (spec §3, §4.9, SPEC_FULL §2.2): the "metrics handles" an
// ExecutionContext carries. NewMetrics registers them on the Registerer its
// caller passes in (none for NewNoopMetrics); nothing in this repository
// opens a listener to expose them.
type Metrics struct {
	HostCalls         *prometheus.CounterVec
	HandlerDuration   prometheus.Histogram
	ArenaReallocations prometheus.Counter
}

// NewMetrics constructs and registers a Metrics set under namespace on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HostCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_calls_total",
			Help:      "Count of host import invocations by module and function.",
		}, []string{"host_module", "function_name"}),
		HandlerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Wall-clock duration of a single handler invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
		ArenaReallocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arena_reallocations_total",
			Help:      "Count of guest memory.allocate calls made by the arena heap.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.HostCalls, m.HandlerDuration, m.ArenaReallocations)
	}
	return m
}

// NewNoopMetrics returns a Metrics set that is never registered, for tests
// and for instances that don't care about observability.
func NewNoopMetrics() *Metrics {
	return NewMetrics("test", nil)
}

// ObserveHostCall increments the host-call counter for one dispatch.
func (m *Metrics) ObserveHostCall(hostModule, functionName string) {
	if m == nil {
		return
	}
	m.HostCalls.WithLabelValues(hostModule, functionName).Inc()
}

// arenaCounter adapts Metrics.ArenaReallocations to the Counter interface
// arena.go depends on, so ArenaHeap never imports prometheus directly.
type arenaCounter struct{ c prometheus.Counter }

func (a arenaCounter) Inc() { a.c.Inc() }

// ArenaCounter exposes the arena-reallocation handle as a Counter for
// NewArenaHeap.
func (m *Metrics) ArenaCounter() Counter {
	if m == nil {
		return noopCounter{}
	}
	return arenaCounter{c: m.ArenaReallocations}
}
