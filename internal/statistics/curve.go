package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemCurve = "curve"

// CurveCollector reports the outcome of the last curve evaluation of every fan
type CurveCollector struct {
	source      SnapshotSource
	temp        *prometheus.Desc
	targetRpm   *prometheus.Desc
	smoothedRpm *prometheus.Desc
}

func NewCurveCollector(source SnapshotSource) *CurveCollector {
	return &CurveCollector{
		source: source,
		temp: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemCurve, "temp"),
			"Averaged temperature the curve of the fan was evaluated with",
			[]string{"id"}, nil,
		),
		targetRpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemCurve, "target_rpm"),
			"Target RPM value of the fan curve",
			[]string{"id"}, nil,
		),
		smoothedRpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemCurve, "smoothed_rpm"),
			"Target RPM value after smoothing",
			[]string{"id"}, nil,
		),
	}
}

func (collector *CurveCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.temp
	ch <- collector.targetRpm
	ch <- collector.smoothedRpm
}

// Collect implements required collect function for all prometheus collectors
func (collector *CurveCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fan := range collector.source.Snapshot().Fans {
		if fan.Telemetry.UpdatedAt.IsZero() {
			continue
		}
		ch <- prometheus.MustNewConstMetric(collector.temp, prometheus.GaugeValue, fan.Telemetry.Temp, fan.Label)
		ch <- prometheus.MustNewConstMetric(collector.targetRpm, prometheus.GaugeValue, float64(fan.Telemetry.TargetRpm), fan.Label)
		ch <- prometheus.MustNewConstMetric(collector.smoothedRpm, prometheus.GaugeValue, float64(fan.Telemetry.SmoothedRpm), fan.Label)
	}
}
