package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors describing served measurements
type Metrics struct {
	registry *prometheus.Registry

	MeasurementsTotal   *prometheus.CounterVec
	MeasurementDuration *prometheus.HistogramVec
	LastThroughput      *prometheus.GaugeVec
	LastSize            *prometheus.GaugeVec
	RejectedTotal       prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.MeasurementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rambench_measurements_total",
			Help: "Total number of measurements by access pattern and outcome",
		},
		[]string{"pattern", "outcome"},
	)

	m.MeasurementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rambench_measurement_duration_seconds",
			Help:    "Wall-clock duration of measurements including allocation and warm-up",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"pattern"},
	)

	m.LastThroughput = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rambench_last_throughput_mebibytes_per_second",
			Help: "Throughput of the most recent successful measurement by access pattern",
		},
		[]string{"pattern"},
	)

	m.LastSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rambench_last_size_bytes",
			Help: "Buffer size of the most recent successful measurement by access pattern",
		},
		[]string{"pattern"},
	)

	m.RejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rambench_rejected_total",
			Help: "Measurements rejected because another one was running",
		},
	)

	m.registry.MustRegister(
		m.MeasurementsTotal,
		m.MeasurementDuration,
		m.LastThroughput,
		m.LastSize,
		m.RejectedTotal,
	)

	return m
}

// Observe records the result of one measurement. Sizes are not used as label
// values since clients choose them freely.
func (m *Metrics) Observe(pattern string, size int, rv float64, err error, duration time.Duration) {
	m.MeasurementDuration.WithLabelValues(pattern).Observe(duration.Seconds())

	if err != nil {
		m.MeasurementsTotal.WithLabelValues(pattern, "failure").Inc()

		return
	}

	m.MeasurementsTotal.WithLabelValues(pattern, "success").Inc()
	m.LastThroughput.WithLabelValues(pattern).Set(rv)
	m.LastSize.WithLabelValues(pattern).Set(float64(size))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
