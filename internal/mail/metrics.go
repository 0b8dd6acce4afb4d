package mail

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_sends_total",
		Help: "Delivery attempts by sender account and result",
	}, []string{"account", "result"})

	sendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notifier_dispatch_duration_seconds",
		Help:    "Wall time of one synchronous dispatch across accounts",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	metricsOnce sync.Once
)

// RegisterMetrics registers the mail metrics plus a live queue-depth gauge
// for the dispatcher. Call once at startup.
func RegisterMetrics(reg prometheus.Registerer, d *Dispatcher) error {
	var err error
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		depth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "notifier_queue_depth",
			Help: "Send jobs waiting in the queue",
		}, func() float64 { return float64(d.QueueDepth()) })

		for _, c := range []prometheus.Collector{sendsTotal, sendDuration, depth} {
			if err = reg.Register(c); err != nil {
				return
			}
		}
	})
	return err
}
