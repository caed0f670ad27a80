package sensors

import (
	"errors"
	"fmt"

	"github.com/markusressel/fancond/internal/configuration"
)

const (
	TypeHwMon = "hwmon"
	TypeFile  = "file"
	TypeCmd   = "cmd"
)

var ErrNoMatchingSensor = errors.New("no matching sensor type")

// Sensor is the capability handle of a single temperature sensor
type Sensor interface {
	// GetId returns the label of this sensor
	GetId() string
	// GetHwId returns a stable identifier derived from the hardware location of this sensor
	GetHwId() string
	GetType() string
	GetConfig() configuration.SensorConfig

	// GetValue returns the current temperature in °C
	GetValue() (float64, error)
}

func NewSensor(config configuration.SensorConfig) (Sensor, error) {
	if config.HwMon != nil {
		return &HwmonSensor{
			Config: config,
		}, nil
	}

	if config.File != nil {
		return &FileSensor{
			Config: config,
		}, nil
	}

	if config.Cmd != nil {
		return &CmdSensor{
			Config: config,
		}, nil
	}

	return nil, fmt.Errorf("%w for sensor: %s", ErrNoMatchingSensor, config.Label)
}

// fromMilliDegrees converts the millidegree Celsius format used by the kernel
func fromMilliDegrees(value float64) float64 {
	return value / 1000
}
