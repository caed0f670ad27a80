package sensors

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
)

// CmdSensor runs an executable that prints a temperature in millidegrees
type CmdSensor struct {
	Config configuration.SensorConfig `json:"configuration"`
}

func (sensor *CmdSensor) GetId() string {
	return sensor.Config.Label
}

func (sensor *CmdSensor) GetHwId() string {
	return strings.Join(append([]string{TypeCmd + ":" + sensor.Config.Cmd.Exec}, sensor.Config.Cmd.Args...), " ")
}

func (sensor *CmdSensor) GetType() string {
	return TypeCmd
}

func (sensor *CmdSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *CmdSensor) GetValue() (float64, error) {
	timeout := 2 * time.Second
	exec := sensor.Config.Cmd.Exec
	args := sensor.Config.Cmd.Args
	result, err := util.SafeCmdExecution(exec, args, timeout)
	if err != nil {
		return 0, fmt.Errorf("sensor %s: %w", sensor.GetId(), err)
	}

	temp, err := strconv.ParseFloat(strings.TrimSpace(result), 64)
	if err != nil {
		ui.Warning("sensor %s: Unable to read int from command output: %s", sensor.GetId(), exec)
		return 0, err
	}

	return fromMilliDegrees(temp), nil
}
