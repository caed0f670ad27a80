package fans

import (
	"path/filepath"
	"sync"
)

// dellModes holds the mode the shared control switch of each device was in before it was claimed,
// keyed by coupling key. Any fan of the device may be the one to release it.
var dellModes = struct {
	sync.Mutex
	original map[string]int
}{original: map[string]int{}}

// DellFan is a fan driven by dell-smm-hwmon. The driver only offers a single manual control
// switch (pwm1_enable) for all fans of the device, so these fans are always coupled.
type DellFan struct {
	HwMonFan
}

func (fan *DellFan) GetHwId() string {
	return hwId(TypeDell, fan.hwmon)
}

func (fan *DellFan) GetType() string {
	return TypeDell
}

func (fan *DellFan) CouplingKey() string {
	device := fan.hwmon.Chip
	if len(device) <= 0 {
		device = fan.hwmon.Path
	}
	return TypeDell + ":" + device
}

func (fan *DellFan) sharedPwmEnable() string {
	return filepath.Join(fan.hwmon.Path, "pwm1_enable")
}

func (fan *DellFan) EnableControl() error {
	dellModes.Lock()
	defer dellModes.Unlock()
	key := fan.CouplingKey()
	previous, recorded, err := switchToManual(fan.sharedPwmEnable(), fan.GetId())
	if _, exists := dellModes.original[key]; recorded && !exists {
		dellModes.original[key] = previous
	}
	return err
}

func (fan *DellFan) DisableControl() error {
	dellModes.Lock()
	defer dellModes.Unlock()
	key := fan.CouplingKey()
	mode, known := dellModes.original[key]
	err := restoreMode(fan.sharedPwmEnable(), mode, known)
	if err == nil {
		delete(dellModes.original, key)
	}
	return err
}
