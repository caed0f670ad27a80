package fans

import (
	"fmt"
	"path/filepath"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
)

// values of pwmX_enable
const (
	// pwmEnableNone completely disables control, resulting in a 100% voltage/PWM signal output
	pwmEnableNone = 0
	// pwmEnableManual enables manual, fixed speed control via setting the pwm value
	pwmEnableManual = 1
	// pwmEnableAutomatic enables automatic control by the integrated control of the mainboard
	pwmEnableAutomatic = 2
)

type HwMonFan struct {
	Config configuration.FanConfig `json:"config"`

	hwmon              configuration.HwMonFanConfig
	originalPwmEnabled int
	hasOriginal        bool
}

func (fan *HwMonFan) GetId() string {
	return fan.Config.Label
}

func (fan *HwMonFan) GetHwId() string {
	return hwId(TypeHwMon, fan.hwmon)
}

func hwId(prefix string, config configuration.HwMonFanConfig) string {
	device := config.Chip
	if len(device) <= 0 {
		device = config.Path
	}
	return fmt.Sprintf("%s:%s/pwm%d", prefix, device, config.Index)
}

func (fan *HwMonFan) GetType() string {
	return TypeHwMon
}

func (fan *HwMonFan) GetConfig() configuration.FanConfig {
	return fan.Config
}

func (fan *HwMonFan) Valid() bool {
	return util.FileExists(fan.pwmOutput())
}

func (fan *HwMonFan) pwmOutput() string {
	return filepath.Join(fan.hwmon.Path, fmt.Sprintf("pwm%d", fan.hwmon.Index))
}

func (fan *HwMonFan) pwmEnable() string {
	return fan.pwmOutput() + "_enable"
}

func (fan *HwMonFan) rpmInput() string {
	index := fan.hwmon.RpmIndex
	if index <= 0 {
		index = fan.hwmon.Index
	}
	return filepath.Join(fan.hwmon.Path, fmt.Sprintf("fan%d_input", index))
}

func (fan *HwMonFan) GetRpm() (int, error) {
	if !util.FileExists(fan.rpmInput()) {
		return 0, ErrNoRpmSensor
	}
	return util.ReadIntFromFile(fan.rpmInput())
}

func (fan *HwMonFan) GetPwm() (int, error) {
	return util.ReadIntFromFile(fan.pwmOutput())
}

func (fan *HwMonFan) SetPwm(pwm int) error {
	ui.Debug("Setting %s (%s) to %d ...", fan.GetId(), fan.GetHwId(), pwm)
	return util.WriteIntToFile(pwm, fan.pwmOutput())
}

func (fan *HwMonFan) EnableControl() error {
	previous, recorded, err := switchToManual(fan.pwmEnable(), fan.GetId())
	if recorded && !fan.hasOriginal {
		fan.originalPwmEnabled = previous
		fan.hasOriginal = true
	}
	return err
}

// switchToManual switches the given pwmX_enable file to manual control.
// recorded is true if the file was in another mode before, which is returned as previous.
func switchToManual(path string, id string) (previous int, recorded bool, err error) {
	current, err := util.ReadIntFromFile(path)
	if err != nil {
		// some drivers have no pwm_enable and are always in manual mode
		if !util.FileExists(path) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if current == pwmEnableManual {
		return current, false, nil
	}

	if err = util.WriteIntToFile(pwmEnableManual, path); err != nil {
		return current, true, err
	}
	value, err := util.ReadIntFromFile(path)
	if err != nil || value != pwmEnableManual {
		return current, true, fmt.Errorf("%w: pwm mode of %s stuck to %d", ErrControlStuck, id, value)
	}
	return current, true, nil
}

func (fan *HwMonFan) DisableControl() error {
	err := restoreMode(fan.pwmEnable(), fan.originalPwmEnabled, fan.hasOriginal)
	if err == nil {
		fan.hasOriginal = false
	}
	return err
}

// restoreMode writes the given mode back to a pwmX_enable file, or automatic if it is unknown
func restoreMode(path string, mode int, known bool) error {
	if !util.FileExists(path) {
		return nil
	}
	if !known || mode == pwmEnableManual || mode == pwmEnableNone {
		// leaving a fan in manual mode would freeze its last speed
		mode = pwmEnableAutomatic
	}
	return util.WriteIntToFile(mode, path)
}
