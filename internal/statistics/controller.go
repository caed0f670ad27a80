package statistics

import (
	"github.com/markusressel/fancond/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const controllerSubsystem = "controller"

var states = []string{
	controller.StateDeferredStart.String(),
	controller.StateRunning.String(),
	controller.StateReloading.String(),
	controller.StateStopped.String(),
}

type ControllerCollector struct {
	source SnapshotSource

	state                   *prometheus.Desc
	tasks                   *prometheus.Desc
	unexpectedPwmValueCount *prometheus.Desc
	lostControlCount        *prometheus.Desc
}

func NewControllerCollector(source SnapshotSource) *ControllerCollector {
	return &ControllerCollector{
		source: source,
		state: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "state"),
			"Current lifecycle state of the controller, 1 for the active state",
			[]string{"state"}, nil,
		),
		tasks: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "tasks"),
			"Number of fans per task status",
			[]string{"status"}, nil,
		),
		unexpectedPwmValueCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "unexpected_pwm_value_count"),
			"Counter for instances of a mismatch between expected PWM value and actual PWM value of this fan",
			[]string{"id"}, nil,
		),
		lostControlCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "lost_control_count"),
			"Counter for instances where control of this fan could not be regained",
			[]string{"id"}, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.state
	ch <- collector.tasks
	ch <- collector.unexpectedPwmValueCount
	ch <- collector.lostControlCount
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := collector.source.Snapshot()

	for _, state := range states {
		value := 0.0
		if state == snapshot.State {
			value = 1
		}
		ch <- prometheus.MustNewConstMetric(collector.state, prometheus.GaugeValue, value, state)
	}

	counts := map[controller.Status]int{}
	for _, fan := range snapshot.Fans {
		counts[fan.Status]++
		ch <- prometheus.MustNewConstMetric(collector.unexpectedPwmValueCount, prometheus.CounterValue, float64(fan.Statistics.UnexpectedPwmValueCount), fan.Label)
		ch <- prometheus.MustNewConstMetric(collector.lostControlCount, prometheus.CounterValue, float64(fan.Statistics.LostControlCount), fan.Label)
	}
	for _, status := range []controller.Status{controller.StatusDisabled, controller.StatusEnabled, controller.StatusTesting} {
		ch <- prometheus.MustNewConstMetric(collector.tasks, prometheus.GaugeValue, float64(counts[status]), status.String())
	}
}
