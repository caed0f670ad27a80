package devices

import (
	"sync"

	"github.com/asecurityteam/rolling"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/sensors"
	"github.com/markusressel/fancond/internal/util"
)

// Sensor is a temperature sensor of the device set, together with its recent history
type Sensor struct {
	Config configuration.SensorConfig
	Driver sensors.Sensor

	mu         sync.RWMutex
	value      float64
	samples    int
	window     *rolling.PointPolicy
	windowSize int
}

func NewSensor(config configuration.SensorConfig) (*Sensor, error) {
	return DefaultFactory.NewSensor(config)
}

func NewSensorWithDriver(config configuration.SensorConfig, driver sensors.Sensor) *Sensor {
	return &Sensor{
		Config:     config,
		Driver:     driver,
		window:     util.CreateRollingWindow(1),
		windowSize: 1,
	}
}

func (s *Sensor) Label() string {
	return s.Config.Label
}

func (s *Sensor) GetHwId() string {
	return s.Driver.GetHwId()
}

func (s *Sensor) Ignored() bool {
	return s.Config.Ignore
}

// Update reads the current temperature and adds it to the history,
// which holds the given number of most recent samples
func (s *Sensor) Update(averagingIntervals int) (float64, error) {
	value, err := s.Driver.GetValue()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if averagingIntervals < 1 {
		averagingIntervals = 1
	}
	if averagingIntervals != s.windowSize {
		s.window = util.CreateRollingWindow(averagingIntervals)
		s.windowSize = averagingIntervals
		s.samples = 0
	}
	if s.samples == 0 {
		// avoid averaging with the zero values of an empty window
		util.FillWindow(s.window, s.windowSize, value)
	} else {
		s.window.Append(value)
	}
	s.samples++
	s.value = value
	return value, nil
}

// Value returns the last observed temperature
func (s *Sensor) Value() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Average returns the average of the recent history, ok is false until the first sample was taken
func (s *Sensor) Average() (avg float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.samples <= 0 {
		return 0, false
	}
	return util.GetWindowAvg(s.window), true
}
