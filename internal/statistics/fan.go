package statistics

import (
	"github.com/markusressel/fancond/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const fanSubsystem = "fan"

type FanCollector struct {
	source     SnapshotSource
	pwm        *prometheus.Desc
	rpm        *prometheus.Desc
	enabled    *prometheus.Desc
	calibrated *prometheus.Desc
	progress   *prometheus.Desc
}

func NewFanCollector(source SnapshotSource) *FanCollector {
	return &FanCollector{
		source: source,
		pwm: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "pwm"),
			"Current PWM value of the fan",
			[]string{"id"}, nil,
		),
		rpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "rpm"),
			"Current RPM value of the fan",
			[]string{"id"}, nil,
		),
		enabled: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "enabled"),
			"1 if the fan is controlled by fancond",
			[]string{"id"}, nil,
		),
		calibrated: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "calibrated"),
			"1 if the fan has a calibration table",
			[]string{"id"}, nil,
		),
		progress: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "test_progress"),
			"Progress of the running calibration of the fan",
			[]string{"id"}, nil,
		),
	}
}

func (collector *FanCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.pwm
	ch <- collector.rpm
	ch <- collector.enabled
	ch <- collector.calibrated
	ch <- collector.progress
}

// Collect implements required collect function for all prometheus collectors
func (collector *FanCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fan := range collector.source.Snapshot().Fans {
		if fan.Ignored {
			continue
		}
		fanId := fan.Label
		ch <- prometheus.MustNewConstMetric(collector.enabled, prometheus.GaugeValue, boolValue(fan.Status == controller.StatusEnabled), fanId)
		ch <- prometheus.MustNewConstMetric(collector.calibrated, prometheus.GaugeValue, boolValue(fan.Calibrated), fanId)
		if fan.Status == controller.StatusTesting {
			ch <- prometheus.MustNewConstMetric(collector.progress, prometheus.GaugeValue, float64(fan.Progress), fanId)
		}
		if !fan.Telemetry.UpdatedAt.IsZero() {
			ch <- prometheus.MustNewConstMetric(collector.pwm, prometheus.GaugeValue, float64(fan.Telemetry.Pwm), fanId)
			ch <- prometheus.MustNewConstMetric(collector.rpm, prometheus.GaugeValue, float64(fan.Telemetry.Rpm), fanId)
		}
	}
}

func boolValue(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
