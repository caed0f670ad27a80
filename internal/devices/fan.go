package devices

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/curves"
	"github.com/markusressel/fancond/internal/fans"
)

var (
	ErrSensorNotFound = errors.New("sensor not found")
	ErrNoCurve        = errors.New("no curve configured")
)

// Telemetry is the outcome of the last control step of a fan
type Telemetry struct {
	Temp        float64   `json:"temp"`
	TargetRpm   int       `json:"targetRpm"`
	SmoothedRpm int       `json:"smoothedRpm"`
	Pwm         int       `json:"pwm"`
	Rpm         int       `json:"rpm"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Statistics counts irregularities seen while controlling a fan
type Statistics struct {
	// UnexpectedPwmValueCount is the number of control steps where the drive level read back differed from the one written
	UnexpectedPwmValueCount int `json:"unexpectedPwmValueCount"`
	// LostControlCount is the number of times control could not be regained
	LostControlCount int `json:"lostControlCount"`
}

// Fan is a fan of the device set: its definition, its capability handle and its runtime state
type Fan struct {
	// Config is the definition this fan was created from, as found in the device set document
	Config configuration.FanConfig
	Driver fans.Fan

	Smoothing *curves.Smoothing

	mu         sync.RWMutex
	tempToRpm  map[int]int
	rpmToPwm   map[int]int
	startPwm   int
	sensor     *Sensor
	telemetry  Telemetry
	statistics Statistics
	nextUpdate time.Time
}

func NewFan(config configuration.FanConfig) (*Fan, error) {
	return DefaultFactory.NewFan(config)
}

func NewFanWithDriver(config configuration.FanConfig, driver fans.Fan) *Fan {
	return &Fan{
		Config:    config,
		Driver:    driver,
		Smoothing: curves.NewSmoothing(),
		rpmToPwm:  copyMap(config.RpmToPwm),
		startPwm:  config.StartPwm,
	}
}

func (f *Fan) Label() string {
	return f.Config.Label
}

func (f *Fan) GetHwId() string {
	return f.Driver.GetHwId()
}

func (f *Fan) Ignored() bool {
	return f.Config.Ignore
}

// Calibrated returns true if the fan has a usable calibration table
func (f *Fan) Calibrated() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rpmToPwm) >= 2 && curves.MaxRpm(f.rpmToPwm) > 0
}

// Configured returns true if the fan has a resolved curve and a bound sensor
func (f *Fan) Configured() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sensor != nil && len(f.tempToRpm) > 0
}

func (f *Fan) Sensor() *Sensor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sensor
}

// Curve returns the current curve data. The maps of the result must not be modified.
func (f *Fan) Curve() curves.Curve {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return curves.Curve{
		TempToRpm: f.tempToRpm,
		RpmToPwm:  f.rpmToPwm,
		StartPwm:  f.startPwm,
	}
}

// Bind looks up the sensor of this fan and resolves its curve definition.
// The returned warnings describe curve points outside the sensor range.
func (f *Fan) Bind(sensorsByLabel map[string]*Sensor) (warnings []string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sensor = nil
	f.tempToRpm = nil

	if len(f.Config.Sensor) <= 0 {
		return nil, fmt.Errorf("fan %s: %w", f.Label(), ErrSensorNotFound)
	}
	sensor, ok := sensorsByLabel[f.Config.Sensor]
	if !ok || sensor.Ignored() {
		return nil, fmt.Errorf("fan %s: %w: %s", f.Label(), ErrSensorNotFound, f.Config.Sensor)
	}
	f.sensor = sensor

	if len(f.Config.TempToRpm) <= 0 {
		return nil, fmt.Errorf("fan %s: %w", f.Label(), ErrNoCurve)
	}
	tempToRpm, warnings, err := curves.ParseCurve(f.Config.TempToRpm, f.rpmToPwm, sensor.Config.Min, sensor.Config.Max)
	if err != nil {
		return warnings, fmt.Errorf("fan %s: %w", f.Label(), err)
	}
	f.tempToRpm = tempToRpm
	return warnings, nil
}

// ApplyCalibration replaces the calibration data of this fan, including its definition
func (f *Fan) ApplyCalibration(startPwm int, rpmToPwm map[int]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startPwm = startPwm
	f.rpmToPwm = copyMap(rpmToPwm)
	f.Config.StartPwm = startPwm
	f.Config.RpmToPwm = copyMap(rpmToPwm)
}

func (f *Fan) Telemetry() Telemetry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.telemetry
}

func (f *Fan) SetTelemetry(telemetry Telemetry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.telemetry = telemetry
}

func (f *Fan) Statistics() Statistics {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.statistics
}

func (f *Fan) CountUnexpectedPwmValue() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statistics.UnexpectedPwmValueCount++
}

func (f *Fan) CountLostControl() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statistics.LostControlCount++
}

// Due returns true if the fan should be updated at the given time.
// Fans without their own interval are updated on every tick.
func (f *Fan) Due(now time.Time) bool {
	if f.Config.Interval <= 0 {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if now.Before(f.nextUpdate) {
		return false
	}
	f.nextUpdate = now.Add(f.Config.Interval)
	return true
}

// Interval returns the update interval of this fan, falling back to the given default
func (f *Fan) Interval(fallback time.Duration) time.Duration {
	if f.Config.Interval > 0 {
		return f.Config.Interval
	}
	return fallback
}

func copyMap(m map[int]int) map[int]int {
	if m == nil {
		return nil
	}
	result := make(map[int]int, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
