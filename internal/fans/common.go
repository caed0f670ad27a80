package fans

import (
	"errors"
	"fmt"

	"github.com/markusressel/fancond/internal/configuration"
)

const (
	MaxPwmValue = 255
	MinPwmValue = 0
)

const (
	TypeHwMon = "hwmon"
	TypeDell  = "dell"
	TypeFile  = "file"
	TypeCmd   = "cmd"
)

var (
	ErrNoRpmSensor   = errors.New("fan has no rpm sensor")
	ErrControlStuck  = errors.New("manual control could not be claimed")
	ErrNoMatchingFan = errors.New("no matching fan type")
)

// Fan is the capability handle of a single physical (or emulated) fan
type Fan interface {
	// GetId returns the label of this fan
	GetId() string
	// GetHwId returns a stable identifier derived from the hardware location of this fan,
	// which survives relabeling and reordering of the device set document
	GetHwId() string
	GetType() string
	GetConfig() configuration.FanConfig
	// Valid returns false if the backing device does not exist (anymore)
	Valid() bool

	// GetRpm returns the current RPM value of this fan
	GetRpm() (int, error)

	// GetPwm returns the current PWM value of this fan
	GetPwm() (int, error)
	SetPwm(pwm int) error

	// EnableControl claims manual control of the fan
	EnableControl() error
	// DisableControl hands control back to whatever controlled the fan before EnableControl
	DisableControl() error
}

// Coupled is implemented by fans that share their manual control switch with other fans.
// All fans returning the same key have to be enabled and disabled together.
type Coupled interface {
	CouplingKey() string
}

func NewFan(config configuration.FanConfig) (Fan, error) {
	if config.HwMon != nil {
		return &HwMonFan{
			Config: config,
			hwmon:  *config.HwMon,
		}, nil
	}

	if config.Dell != nil {
		return &DellFan{
			HwMonFan: HwMonFan{
				Config: config,
				hwmon:  *config.Dell,
			},
		}, nil
	}

	if config.File != nil {
		return &FileFan{
			Config: config,
		}, nil
	}

	if config.Cmd != nil {
		return &CmdFan{
			Config: config,
		}, nil
	}

	return nil, fmt.Errorf("%w for fan: %s", ErrNoMatchingFan, config.Label)
}
