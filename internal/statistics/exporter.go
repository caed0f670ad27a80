package statistics

import (
	"github.com/markusressel/fancond/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "fancond"
)

// SnapshotSource provides the state all collectors report on
type SnapshotSource interface {
	Snapshot() controller.StatusSnapshot
}

// NewRegistry creates a registry containing all fancond collectors
func NewRegistry(source SnapshotSource) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	Register(registry, NewControllerCollector(source))
	Register(registry, NewFanCollector(source))
	Register(registry, NewCurveCollector(source))
	Register(registry, NewSensorCollector(source))
	return registry
}

func Register(registerer prometheus.Registerer, collector prometheus.Collector) {
	registerer.MustRegister(collector)
}
