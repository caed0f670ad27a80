package devices

import (
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/sensors"
)

// Factory creates the drivers for fan and sensor definitions
type Factory struct {
	Fan    func(config configuration.FanConfig) (fans.Fan, error)
	Sensor func(config configuration.SensorConfig) (sensors.Sensor, error)
}

// DefaultFactory creates drivers for real hardware
var DefaultFactory = Factory{
	Fan:    fans.NewFan,
	Sensor: sensors.NewSensor,
}

func (f Factory) NewFan(config configuration.FanConfig) (*Fan, error) {
	driver, err := f.Fan(config)
	if err != nil {
		return nil, err
	}
	return NewFanWithDriver(config, driver), nil
}

func (f Factory) NewSensor(config configuration.SensorConfig) (*Sensor, error) {
	driver, err := f.Sensor(config)
	if err != nil {
		return nil, err
	}
	return NewSensorWithDriver(config, driver), nil
}
