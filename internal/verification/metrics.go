package verification

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var metricsOnce sync.Once

// RegisterMetrics exposes the live code count. Call once at startup.
func RegisterMetrics(reg prometheus.Registerer, store *CodeStore) error {
	var err error
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		err = reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "notifier_active_codes",
			Help: "Verification codes currently live in the store",
		}, func() float64 { return float64(store.Len()) }))
	})
	return err
}
