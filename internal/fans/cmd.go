package fans

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
)

const cmdTimeout = 2 * time.Second

// CmdFan delegates reading and writing to user provided executables.
// Arguments of setPwm may contain the placeholder %pwm%.
type CmdFan struct {
	Config configuration.FanConfig `json:"config"`
}

func (fan *CmdFan) GetId() string {
	return fan.Config.Label
}

func (fan *CmdFan) GetHwId() string {
	conf := fan.Config.Cmd.SetPwm
	if conf == nil {
		return TypeCmd + ":" + fan.Config.Label
	}
	return strings.Join(append([]string{TypeCmd + ":" + conf.Exec}, conf.Args...), " ")
}

func (fan *CmdFan) GetType() string {
	return TypeCmd
}

func (fan *CmdFan) GetConfig() configuration.FanConfig {
	return fan.Config
}

func (fan *CmdFan) Valid() bool {
	conf := fan.Config.Cmd
	return conf.SetPwm != nil && conf.GetPwm != nil && util.FileExists(conf.SetPwm.Exec)
}

func (fan *CmdFan) GetRpm() (int, error) {
	conf := fan.Config.Cmd.GetRpm
	if conf == nil {
		return 0, ErrNoRpmSensor
	}
	return runForInt(conf, conf.Args)
}

func (fan *CmdFan) GetPwm() (int, error) {
	conf := fan.Config.Cmd.GetPwm
	if conf == nil {
		return 0, fmt.Errorf("fan %s: getPwm is not configured", fan.GetId())
	}
	return runForInt(conf, conf.Args)
}

func (fan *CmdFan) SetPwm(pwm int) error {
	conf := fan.Config.Cmd.SetPwm
	if conf == nil {
		return fmt.Errorf("fan %s: setPwm is not configured", fan.GetId())
	}

	var args []string
	for _, arg := range conf.Args {
		args = append(args, strings.ReplaceAll(arg, "%pwm%", strconv.Itoa(pwm)))
	}

	_, err := util.SafeCmdExecution(conf.Exec, args, cmdTimeout)
	if err != nil {
		return fmt.Errorf("fan %s: %w", fan.GetId(), err)
	}
	return nil
}

func (fan *CmdFan) EnableControl() error {
	return nil
}

func (fan *CmdFan) DisableControl() error {
	return nil
}

func runForInt(conf *configuration.ExecConfig, args []string) (int, error) {
	output, err := util.SafeCmdExecution(conf.Exec, args, cmdTimeout)
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		ui.Warning("Unable to read int from command output: %s", conf.Exec)
		return 0, err
	}
	return int(value), nil
}
