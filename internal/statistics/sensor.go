package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemSensor = "sensor"

type SensorCollector struct {
	source  SnapshotSource
	value   *prometheus.Desc
	average *prometheus.Desc
}

func NewSensorCollector(source SnapshotSource) *SensorCollector {
	return &SensorCollector{
		source: source,
		value: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "value"),
			"Current value of the sensor",
			[]string{"id"}, nil,
		),
		average: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "average"),
			"Moving average of the sensor value",
			[]string{"id"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.value
	ch <- collector.average
}

// Collect implements required collect function for all prometheus collectors
func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for _, sensor := range collector.source.Snapshot().Sensors {
		if sensor.Ignored {
			continue
		}
		ch <- prometheus.MustNewConstMetric(collector.value, prometheus.GaugeValue, sensor.Value, sensor.Label)
		ch <- prometheus.MustNewConstMetric(collector.average, prometheus.GaugeValue, sensor.Average, sensor.Label)
	}
}
