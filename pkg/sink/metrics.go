package sink

import (
	"github.com/prometheus/client_golang/prometheus"

	"logbridge/pkg/worker"
)

// Metrics is shared by every sink of a process. Counters and the append pool
// queue depth are totals over all sinks using it.
type Metrics struct {
	written         prometheus.Counter
	skipped         prometheus.Counter
	bytes           prometheus.Counter
	writeErrors     prometheus.Counter
	connects        prometheus.Counter
	connectFailures prometheus.Counter
	pool            *worker.Metrics
}

// NewMetrics registers sink and worker pool collectors with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbridge_records_written_total",
			Help: "Records written to a connected sink",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbridge_records_skipped_total",
			Help: "Records appended while the sink was disconnected",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbridge_bytes_written_total",
			Help: "Uncompressed bytes handed to the compressor",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbridge_write_errors_total",
			Help: "Record writes that failed",
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbridge_connects_total",
			Help: "Successful sink connects",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbridge_connect_failures_total",
			Help: "Sink connects that could not open the destination",
		}),
		pool: worker.NewMetrics(reg, "logbridge_append_pool"),
	}
	if reg != nil {
		reg.MustRegister(m.written, m.skipped, m.bytes, m.writeErrors, m.connects, m.connectFailures)
	}
	return m
}
