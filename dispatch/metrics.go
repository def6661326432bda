package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/txix-open/isp-kit/metrics"
)

type poolMetrics struct {
	processed     prometheus.Counter
	panics        prometheus.Counter
	blockedSubmit prometheus.Counter
}

func newPoolMetrics(pool string) poolMetrics {
	processed := metrics.GetOrRegister(metrics.DefaultRegistry, prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "cqlx_dispatch",
		Name:      "processed_total",
		Help:      "Number of futures processed by dispatch pool workers",
	}, []string{"pool"}))
	panics := metrics.GetOrRegister(metrics.DefaultRegistry, prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "cqlx_dispatch",
		Name:      "callback_panics_total",
		Help:      "Number of callbacks panicked on dispatch pool workers",
	}, []string{"pool"}))
	blocked := metrics.GetOrRegister(metrics.DefaultRegistry, prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "cqlx_dispatch",
		Name:      "blocked_submit_total",
		Help:      "Number of submits blocked by a full dispatch queue",
	}, []string{"pool"}))
	return poolMetrics{
		processed:     processed.WithLabelValues(pool),
		panics:        panics.WithLabelValues(pool),
		blockedSubmit: blocked.WithLabelValues(pool),
	}
}
