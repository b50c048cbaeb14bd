// Package metrics exposes the Prometheus collectors the vfs package registers for its block pool and operation
// engine. Callers that don't run a Prometheus exporter can ignore this package entirely: the vfs package always
// updates these collectors, but nothing requires them to ever be scraped.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BlocksInUse is the current number of blocks checked out of a block pool, labeled by pool name.
	BlocksInUse = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vfs",
		Subsystem: "blockpool",
		Name:      "blocks_in_use",
		Help:      "Number of blocks currently allocated from the pool.",
	}, []string{"pool"})

	// BlocksCapacity is the configured block quota of a pool, labeled by pool name.
	BlocksCapacity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vfs",
		Subsystem: "blockpool",
		Name:      "blocks_capacity",
		Help:      "Configured block capacity of the pool.",
	}, []string{"pool"})

	// AllocationWaitSeconds observes how long a blocking Allocate call waited for a free block.
	AllocationWaitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vfs",
		Subsystem: "blockpool",
		Name:      "allocation_wait_seconds",
		Help:      "Time spent blocked in Allocate waiting for a free block.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"pool"})

	// SessionsActive is the number of OperationSession values currently open.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vfs",
		Subsystem: "session",
		Name:      "active",
		Help:      "Number of currently open operation sessions.",
	})

	// OperationsTotal counts completed operations by their terminal state.
	OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfs",
		Subsystem: "operation",
		Name:      "total",
		Help:      "Operations reaching a terminal state, labeled by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(BlocksInUse, BlocksCapacity, AllocationWaitSeconds, SessionsActive, OperationsTotal)
}
