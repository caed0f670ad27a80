package devices

import (
	"sort"

	"github.com/looplab/tarjan"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/ui"
)

// Devices is a set of fans and sensors, each keyed by its label
type Devices struct {
	Fans    map[string]*Fan
	Sensors map[string]*Sensor
}

func New() *Devices {
	return &Devices{
		Fans:    map[string]*Fan{},
		Sensors: map[string]*Sensor{},
	}
}

// SortedFans returns all fans, sorted by label
func (d *Devices) SortedFans() []*Fan {
	result := make([]*Fan, 0, len(d.Fans))
	for _, fan := range d.Fans {
		result = append(result, fan)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Label() < result[j].Label()
	})
	return result
}

// SortedSensors returns all sensors, sorted by label
func (d *Devices) SortedSensors() []*Sensor {
	result := make([]*Sensor, 0, len(d.Sensors))
	for _, sensor := range d.Sensors {
		result = append(result, sensor)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Label() < result[j].Label()
	})
	return result
}

func (d *Devices) FanByHwId(hwId string) (*Fan, bool) {
	for _, fan := range d.Fans {
		if fan.GetHwId() == hwId {
			return fan, true
		}
	}
	return nil, false
}

// Bind binds every fan to its sensor, logging fans that cannot be controlled
func (d *Devices) Bind() {
	for _, fan := range d.SortedFans() {
		if fan.Ignored() {
			continue
		}
		warnings, err := fan.Bind(d.Sensors)
		for _, warning := range warnings {
			ui.Warning("Fan %s: %s", fan.Label(), warning)
		}
		if err != nil {
			ui.Debug("%v", err)
		}
	}
}

// ToDocument converts the device set back into its document form
func (d *Devices) ToDocument(controller configuration.ControllerConfig) Document {
	doc := Document{Controller: controller}
	for _, sensor := range d.SortedSensors() {
		doc.Sensors = append(doc.Sensors, sensor.Config)
	}
	for _, fan := range d.SortedFans() {
		doc.Fans = append(doc.Fans, fan.Config)
	}
	return doc
}

// CouplingGroups returns, for every fan, the labels of all fans that have to be
// enabled and disabled together with it, including the fan itself.
// Fans are coupled if they share a control switch or reference each other via coupledWith.
func (d *Devices) CouplingGroups() map[string][]string {
	graph := make(map[interface{}][]interface{}, len(d.Fans))
	connect := func(a string, b string) {
		graph[a] = append(graph[a], b)
		graph[b] = append(graph[b], a)
	}

	byCouplingKey := map[string][]string{}
	for _, fan := range d.SortedFans() {
		label := fan.Label()
		if _, ok := graph[label]; !ok {
			graph[label] = []interface{}{}
		}
		for _, other := range fan.Config.CoupledWith {
			if _, ok := d.Fans[other]; ok && other != label {
				connect(label, other)
			}
		}
		if coupled, ok := fan.Driver.(fans.Coupled); ok {
			key := coupled.CouplingKey()
			byCouplingKey[key] = append(byCouplingKey[key], label)
		}
	}
	for _, labels := range byCouplingKey {
		for i := 1; i < len(labels); i++ {
			connect(labels[i-1], labels[i])
		}
	}

	result := map[string][]string{}
	for _, component := range tarjan.Connections(graph) {
		group := make([]string, 0, len(component))
		for _, node := range component {
			group = append(group, node.(string))
		}
		sort.Strings(group)
		for _, label := range group {
			result[label] = group
		}
	}
	return result
}
