package controller

import (
	"fmt"
	"time"

	"github.com/markusressel/fancond/internal/curves"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/qdm12/reprint"
	"golang.org/x/exp/maps"
)

type FanStatus struct {
	Label      string             `json:"label"`
	HwId       string             `json:"hwId"`
	Status     Status             `json:"status"`
	Progress   int                `json:"progress"`
	Calibrated bool               `json:"calibrated"`
	Ignored    bool               `json:"ignored"`
	Sensor     string             `json:"sensor,omitempty"`
	Telemetry  devices.Telemetry  `json:"telemetry"`
	Statistics devices.Statistics `json:"statistics"`
}

type SensorStatus struct {
	Label   string  `json:"label"`
	HwId    string  `json:"hwId"`
	Value   float64 `json:"value"`
	Average float64 `json:"average"`
	Ignored bool    `json:"ignored"`
}

// StatusSnapshot is the state of the controller and all of its devices at a given point in time
type StatusSnapshot struct {
	State     string         `json:"state"`
	Fans      []FanStatus    `json:"fans"`
	Sensors   []SensorStatus `json:"sensors"`
	Timestamp time.Time      `json:"timestamp"`
}

func (c *Controller) Snapshot() StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() StatusSnapshot {
	snapshot := StatusSnapshot{
		State:     c.state.String(),
		Fans:      []FanStatus{},
		Sensors:   []SensorStatus{},
		Timestamp: time.Now(),
	}
	for _, fan := range c.devices.SortedFans() {
		snapshot.Fans = append(snapshot.Fans, c.fanStatusLocked(fan))
	}
	for _, sensor := range c.devices.SortedSensors() {
		avg, _ := sensor.Average()
		snapshot.Sensors = append(snapshot.Sensors, SensorStatus{
			Label:   sensor.Label(),
			HwId:    sensor.GetHwId(),
			Value:   sensor.Value(),
			Average: avg,
			Ignored: sensor.Ignored(),
		})
	}
	return snapshot
}

func (c *Controller) fanStatusLocked(fan *devices.Fan) FanStatus {
	status := FanStatus{
		Label:      fan.Label(),
		HwId:       fan.GetHwId(),
		Status:     StatusDisabled,
		Calibrated: fan.Calibrated(),
		Ignored:    fan.Ignored(),
		Sensor:     fan.Config.Sensor,
		Telemetry:  fan.Telemetry(),
		Statistics: fan.Statistics(),
	}
	if task, ok := c.tasks.Get(fan.GetHwId()); ok {
		status.Status = task.Status
		if task.Progress != nil {
			status.Progress = task.Progress.Get()
		}
	}
	return status
}

// Status returns the status of a single fan
func (c *Controller) Status(label string) (FanStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fan, ok := c.devices.Fans[label]
	if !ok {
		return FanStatus{}, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return c.fanStatusLocked(fan), nil
}

// Curve returns a copy of the resolved curve data of the given fan
func (c *Controller) Curve(label string) (curves.Curve, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fan, ok := c.devices.Fans[label]
	if !ok {
		return curves.Curve{}, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	curve := fan.Curve()
	return curves.Curve{
		TempToRpm: maps.Clone(curve.TempToRpm),
		RpmToPwm:  maps.Clone(curve.RpmToPwm),
		StartPwm:  curve.StartPwm,
	}, nil
}

// TestProgress returns the progress observable of the test running for the given fan
func (c *Controller) TestProgress(label string) (*observable.Number, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fan, ok := c.devices.Fans[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	task, ok := c.tasks.Get(fan.GetHwId())
	if !ok || task.Status != StatusTesting {
		return nil, fmt.Errorf("fan %s is not being tested", label)
	}
	return task.Progress, nil
}

// Devices returns a copy of the current device set in its document form
func (c *Controller) Devices() devices.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.documentCopyLocked()
}

func (c *Controller) documentCopyLocked() devices.Document {
	return reprint.This(c.devices.ToDocument(c.params)).(devices.Document)
}

// notifyStatus publishes a status snapshot. Must not be called with mu held.
func (c *Controller) notifyStatus() {
	if c.statusObservers.Len() == 0 {
		return
	}
	c.notifyStatusSnapshot(c.Snapshot())
}

func (c *Controller) notifyStatusSnapshot(snapshot StatusSnapshot) {
	c.statusObservers.Notify(snapshot)
}

// notifyDevicesLocked publishes the device set. Observers must not call back into the controller.
func (c *Controller) notifyDevicesLocked() {
	if c.deviceObservers.Len() == 0 {
		return
	}
	c.deviceObservers.Notify(c.documentCopyLocked())
}

// SubscribeStatus registers a callback that receives a snapshot after every operation and tick
func (c *Controller) SubscribeStatus(callback func(StatusSnapshot)) observable.Handle {
	return c.statusObservers.Subscribe(callback)
}

// SubscribeDevices registers a callback that receives the device set after every reload
func (c *Controller) SubscribeDevices(callback func(devices.Document)) observable.Handle {
	return c.deviceObservers.Subscribe(callback)
}

func (c *Controller) Unsubscribe(handle observable.Handle) bool {
	return c.statusObservers.Unsubscribe(handle) || c.deviceObservers.Unsubscribe(handle)
}
