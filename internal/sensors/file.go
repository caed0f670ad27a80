package sensors

import (
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
)

// FileSensor reads a temperature in millidegrees from a plain file
type FileSensor struct {
	Config configuration.SensorConfig `json:"configuration"`
}

func (sensor *FileSensor) GetId() string {
	return sensor.Config.Label
}

func (sensor *FileSensor) GetHwId() string {
	path, _ := util.ExpandHomeDir(sensor.Config.File.Path)
	return TypeFile + ":" + path
}

func (sensor *FileSensor) GetType() string {
	return TypeFile
}

func (sensor *FileSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *FileSensor) GetValue() (float64, error) {
	filePath, err := util.ExpandHomeDir(sensor.Config.File.Path)
	if err != nil {
		return 0, err
	}

	integer, err := util.ReadIntFromFile(filePath)
	if err != nil {
		ui.Warning("Unable to read int from file sensor: %s", filePath)
		return 0, err
	}
	return fromMilliDegrees(float64(integer)), nil
}
