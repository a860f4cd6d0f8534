package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SamplesProcessed counts radio samples run through the detection pipeline
	SamplesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cellwatch",
			Name:      "samples_processed_total",
			Help:      "Total number of radio samples processed by the monitor",
		},
	)

	// ThreatsDetected counts threats raised by the classifier, by type
	ThreatsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellwatch",
			Name:      "threats_detected_total",
			Help:      "Total number of threats raised by the classifier",
		},
		[]string{"threat_type"},
	)

	// ThreatsReceived counts threat reports accepted by the coordinator
	ThreatsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellwatch",
			Name:      "threats_received_total",
			Help:      "Total number of threat reports accepted by the coordinator",
		},
		[]string{"threat_type", "severity"},
	)

	// CoordinatedAttacks counts correlation engine alerts
	CoordinatedAttacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cellwatch",
			Name:      "coordinated_attacks_total",
			Help:      "Total number of coordinated attack alerts raised",
		},
	)

	// ConnectedDevices tracks sessions currently marked active
	ConnectedDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cellwatch",
			Name:      "connected_devices",
			Help:      "Number of device sessions currently active",
		},
	)

	// ThreatsDropped counts reports dropped before persistence
	ThreatsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellwatch",
			Name:      "threats_dropped_total",
			Help:      "Total number of threat reports dropped",
		},
		[]string{"reason"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(SamplesProcessed)
		prometheus.DefaultRegisterer.Register(ThreatsDetected)
		prometheus.DefaultRegisterer.Register(ThreatsReceived)
		prometheus.DefaultRegisterer.Register(CoordinatedAttacks)
		prometheus.DefaultRegisterer.Register(ConnectedDevices)
		prometheus.DefaultRegisterer.Register(ThreatsDropped)
	})
}
