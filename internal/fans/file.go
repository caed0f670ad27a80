package fans

import (
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
)

// FileFan reads and writes its pwm value from/to a plain file,
// which allows other programs to act on the computed values
type FileFan struct {
	Config configuration.FanConfig `json:"config"`
}

func (fan *FileFan) GetId() string {
	return fan.Config.Label
}

func (fan *FileFan) GetHwId() string {
	path, _ := util.ExpandHomeDir(fan.Config.File.Path)
	return TypeFile + ":" + path
}

func (fan *FileFan) GetType() string {
	return TypeFile
}

func (fan *FileFan) GetConfig() configuration.FanConfig {
	return fan.Config
}

func (fan *FileFan) Valid() bool {
	path, err := util.ExpandHomeDir(fan.Config.File.Path)
	return err == nil && util.FileExists(path)
}

func (fan *FileFan) GetRpm() (int, error) {
	if len(fan.Config.File.RpmPath) <= 0 {
		return 0, ErrNoRpmSensor
	}
	path, err := util.ExpandHomeDir(fan.Config.File.RpmPath)
	if err != nil {
		return 0, err
	}
	return util.ReadIntFromFile(path)
}

func (fan *FileFan) GetPwm() (int, error) {
	path, err := util.ExpandHomeDir(fan.Config.File.Path)
	if err != nil {
		return MinPwmValue, err
	}
	value, err := util.ReadIntFromFile(path)
	if err != nil {
		return MinPwmValue, err
	}
	return value, nil
}

func (fan *FileFan) SetPwm(pwm int) error {
	path, err := util.ExpandHomeDir(fan.Config.File.Path)
	if err != nil {
		return err
	}
	err = util.WriteIntToFileAtomic(pwm, path)
	if err != nil {
		ui.Error("Unable to write to file: %v", fan.Config.File.Path)
	}
	return err
}

func (fan *FileFan) EnableControl() error {
	return nil
}

func (fan *FileFan) DisableControl() error {
	return nil
}
