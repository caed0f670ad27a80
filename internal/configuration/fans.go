package configuration

import "time"

// FanConfig is the definition of a single fan within the device set document
type FanConfig struct {
	Label  string `json:"label" yaml:"label"`
	Ignore bool   `json:"ignore" yaml:"ignore"`
	// Sensor is the label of the sensor whose temperature controls this fan
	Sensor string `json:"sensor,omitempty" yaml:"sensor,omitempty"`
	// TempToRpm is the fan curve, e.g. "40: 0%, 60: 1200, 176F: 100%"
	TempToRpm string `json:"tempToRpm,omitempty" yaml:"tempToRpm,omitempty"`
	// RpmToPwm is the calibration table, written by fancond after a successful test
	RpmToPwm map[int]int `json:"rpmToPwm,omitempty" yaml:"rpmToPwm,omitempty"`
	// StartPwm is the drive level needed to start the fan, written by fancond after a successful test
	StartPwm int `json:"startPwm,omitempty" yaml:"startPwm,omitempty"`
	// Interval overrides the update interval of the controller for this fan
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	// CoupledWith lists labels of fans that have to be enabled and disabled together with this one
	CoupledWith []string `json:"coupledWith,omitempty" yaml:"coupledWith,omitempty"`

	HwMon *HwMonFanConfig `json:"hwmon,omitempty" yaml:"hwmon,omitempty"`
	Dell  *HwMonFanConfig `json:"dell,omitempty" yaml:"dell,omitempty"`
	File  *FileFanConfig  `json:"file,omitempty" yaml:"file,omitempty"`
	Cmd   *CmdFanConfig   `json:"cmd,omitempty" yaml:"cmd,omitempty"`
}

type HwMonFanConfig struct {
	// Chip is the stable identifier of the hwmon chip, e.g. "nct6798-isa-290"
	Chip string `json:"chip,omitempty" yaml:"chip,omitempty"`
	// Path is the hwmon device directory, e.g. "/sys/class/hwmon/hwmon3"
	Path string `json:"path" yaml:"path"`
	// Index is the index of the pwm output, e.g. 2 for pwm2
	Index int `json:"index" yaml:"index"`
	// RpmIndex is the index of the rpm input if it differs from Index
	RpmIndex int `json:"rpmIndex,omitempty" yaml:"rpmIndex,omitempty"`
}

type FileFanConfig struct {
	Path    string `json:"path" yaml:"path"`
	RpmPath string `json:"rpmPath,omitempty" yaml:"rpmPath,omitempty"`
}

type CmdFanConfig struct {
	SetPwm *ExecConfig `json:"setPwm,omitempty" yaml:"setPwm,omitempty"`
	GetPwm *ExecConfig `json:"getPwm,omitempty" yaml:"getPwm,omitempty"`
	GetRpm *ExecConfig `json:"getRpm,omitempty" yaml:"getRpm,omitempty"`
}

type ExecConfig struct {
	Exec string   `json:"exec" yaml:"exec"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}
