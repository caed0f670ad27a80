package sensors

import (
	"fmt"
	"path/filepath"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/util"
)

type HwmonSensor struct {
	Config configuration.SensorConfig `json:"configuration"`
}

func (sensor *HwmonSensor) GetId() string {
	return sensor.Config.Label
}

func (sensor *HwmonSensor) GetHwId() string {
	device := sensor.Config.HwMon.Chip
	if len(device) <= 0 {
		device = sensor.Config.HwMon.Path
	}
	return fmt.Sprintf("%s:%s/temp%d", TypeHwMon, device, sensor.Config.HwMon.Index)
}

func (sensor *HwmonSensor) GetType() string {
	return TypeHwMon
}

func (sensor *HwmonSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *HwmonSensor) input() string {
	return filepath.Join(sensor.Config.HwMon.Path, fmt.Sprintf("temp%d_input", sensor.Config.HwMon.Index))
}

func (sensor *HwmonSensor) GetValue() (float64, error) {
	integer, err := util.ReadIntFromFile(sensor.input())
	if err != nil {
		return 0, err
	}
	return fromMilliDegrees(float64(integer)), nil
}
