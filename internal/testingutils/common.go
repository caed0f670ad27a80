package testingutils

import (
	"sync"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/fans"
)

// SimulatedFan behaves like a real fan with a start threshold and a lower stop threshold.
// A stopped fan only starts spinning at StartLevel or above, a spinning fan stops below StopLevel.
type SimulatedFan struct {
	mu sync.Mutex

	Config     configuration.FanConfig
	HwId       string
	StartLevel int
	StopLevel  int
	MaxRpm     int

	// IgnoreWrites simulates firmware that silently discards manual drive levels
	IgnoreWrites bool
	// LoseControl simulates firmware that overrides the drive level after a write
	LoseControl bool
	ControlErr  error
	RpmErr      error

	pwm         int
	spinning    bool
	controlled  bool
	enableCount int
	pwmWrites   []int
}

func NewSimulatedFan(label string, startLevel int, stopLevel int, maxRpm int) *SimulatedFan {
	return &SimulatedFan{
		Config: configuration.FanConfig{
			Label: label,
			File:  &configuration.FileFanConfig{Path: "/dev/null/" + label},
		},
		HwId:       "sim:" + label,
		StartLevel: startLevel,
		StopLevel:  stopLevel,
		MaxRpm:     maxRpm,
	}
}

func (fan *SimulatedFan) GetId() string {
	return fan.Config.Label
}

func (fan *SimulatedFan) GetHwId() string {
	return fan.HwId
}

func (fan *SimulatedFan) GetType() string {
	return "simulated"
}

func (fan *SimulatedFan) GetConfig() configuration.FanConfig {
	return fan.Config
}

func (fan *SimulatedFan) Valid() bool {
	return true
}

func (fan *SimulatedFan) GetRpm() (int, error) {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	if fan.RpmErr != nil {
		return 0, fan.RpmErr
	}
	if !fan.spinning {
		return 0, nil
	}
	return fan.MaxRpm * fan.pwm / fans.MaxPwmValue, nil
}

func (fan *SimulatedFan) GetPwm() (int, error) {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	if fan.LoseControl {
		return fan.pwm + 1, nil
	}
	return fan.pwm, nil
}

func (fan *SimulatedFan) SetPwm(pwm int) error {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	fan.pwmWrites = append(fan.pwmWrites, pwm)
	if fan.IgnoreWrites {
		return nil
	}
	fan.pwm = pwm
	if pwm >= fan.StartLevel {
		fan.spinning = true
	}
	if pwm < fan.StopLevel {
		fan.spinning = false
	}
	return nil
}

// ForcePwm changes the drive level without going through SetPwm
func (fan *SimulatedFan) ForcePwm(pwm int) {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	fan.pwm = pwm
	fan.spinning = pwm >= fan.StopLevel && pwm > 0
}

func (fan *SimulatedFan) EnableControl() error {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	if fan.ControlErr != nil {
		return fan.ControlErr
	}
	fan.controlled = true
	fan.enableCount++
	return nil
}

func (fan *SimulatedFan) DisableControl() error {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	fan.controlled = false
	return nil
}

func (fan *SimulatedFan) Controlled() bool {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	return fan.controlled
}

func (fan *SimulatedFan) EnableCount() int {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	return fan.enableCount
}

// PwmWrites returns every drive level written so far
func (fan *SimulatedFan) PwmWrites() []int {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	return append([]int{}, fan.pwmWrites...)
}

func (fan *SimulatedFan) SetLoseControl(value bool) {
	fan.mu.Lock()
	defer fan.mu.Unlock()
	fan.LoseControl = value
}

// CoupledSimulatedFan shares its control switch with every fan of the same key
type CoupledSimulatedFan struct {
	*SimulatedFan
	Key string
}

func (fan *CoupledSimulatedFan) CouplingKey() string {
	return fan.Key
}

type SimulatedSensor struct {
	mu sync.Mutex

	Config configuration.SensorConfig
	HwId   string
	value  float64
	err    error
}

func NewSimulatedSensor(label string, value float64) *SimulatedSensor {
	return &SimulatedSensor{
		Config: configuration.SensorConfig{
			Label: label,
			File:  &configuration.FileSensorConfig{Path: "/dev/null/" + label},
		},
		HwId:  "sim:" + label,
		value: value,
	}
}

func (sensor *SimulatedSensor) GetId() string {
	return sensor.Config.Label
}

func (sensor *SimulatedSensor) GetHwId() string {
	return sensor.HwId
}

func (sensor *SimulatedSensor) GetType() string {
	return "simulated"
}

func (sensor *SimulatedSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *SimulatedSensor) GetValue() (float64, error) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	return sensor.value, sensor.err
}

func (sensor *SimulatedSensor) SetValue(value float64) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	sensor.value = value
}

func (sensor *SimulatedSensor) SetError(err error) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	sensor.err = err
}
