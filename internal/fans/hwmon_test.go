package fans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/util"
	"github.com/stretchr/testify/assert"
)

func createHwMonDir(t *testing.T, files map[string]int) string {
	dir := t.TempDir()
	for name, value := range files {
		err := util.WriteIntToFile(value, filepath.Join(dir, name))
		assert.NoError(t, err)
	}
	return dir
}

func TestHwMonFan_GetHwId(t *testing.T) {
	// GIVEN
	fan, _ := NewFan(configuration.FanConfig{
		Label: "cpu",
		HwMon: &configuration.HwMonFanConfig{Chip: "nct6798-isa-290", Path: "/sys/class/hwmon/hwmon3", Index: 2},
	})

	// WHEN
	result := fan.GetHwId()

	// THEN
	assert.Equal(t, "hwmon:nct6798-isa-290/pwm2", result)
	assert.Equal(t, "cpu", fan.GetId())
	assert.Equal(t, TypeHwMon, fan.GetType())
}

func TestHwMonFan_GetHwId_WithoutChip(t *testing.T) {
	// GIVEN
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: "/sys/class/hwmon/hwmon3", Index: 1},
	})

	// WHEN
	result := fan.GetHwId()

	// THEN
	assert.Equal(t, "hwmon:/sys/class/hwmon/hwmon3/pwm1", result)
}

func TestHwMonFan_ReadAndWrite(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":       100,
		"fan1_input": 1200,
	})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1},
	})

	// WHEN
	err := fan.SetPwm(150)
	pwm, pwmErr := fan.GetPwm()
	rpm, rpmErr := fan.GetRpm()

	// THEN
	assert.NoError(t, err)
	assert.NoError(t, pwmErr)
	assert.NoError(t, rpmErr)
	assert.Equal(t, 150, pwm)
	assert.Equal(t, 1200, rpm)
	assert.True(t, fan.Valid())
}

func TestHwMonFan_RpmIndex(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":       100,
		"fan3_input": 900,
	})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1, RpmIndex: 3},
	})

	// WHEN
	rpm, err := fan.GetRpm()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 900, rpm)
}

func TestHwMonFan_GetRpm_NoSensor(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{"pwm1": 100})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1},
	})

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.ErrorIs(t, err, ErrNoRpmSensor)
}

func TestHwMonFan_EnableAndDisableControl(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":        100,
		"pwm1_enable": 5,
	})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1},
	})

	// WHEN
	enableErr := fan.EnableControl()
	modeWhileEnabled, _ := util.ReadIntFromFile(filepath.Join(dir, "pwm1_enable"))
	disableErr := fan.DisableControl()
	modeAfterDisable, _ := util.ReadIntFromFile(filepath.Join(dir, "pwm1_enable"))

	// THEN
	assert.NoError(t, enableErr)
	assert.NoError(t, disableErr)
	assert.Equal(t, 1, modeWhileEnabled)
	assert.Equal(t, 5, modeAfterDisable)
}

func TestHwMonFan_DisableControl_FallsBackToAutomatic(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":        100,
		"pwm1_enable": 1,
	})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1},
	})
	_ = fan.EnableControl()

	// WHEN
	err := fan.DisableControl()

	// THEN
	assert.NoError(t, err)
	mode, _ := util.ReadIntFromFile(filepath.Join(dir, "pwm1_enable"))
	assert.Equal(t, 2, mode)
}

func TestHwMonFan_EnableControl_WithoutEnableFile(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{"pwm1": 100})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1},
	})

	// WHEN
	err := fan.EnableControl()

	// THEN
	assert.NoError(t, err)
}

func TestHwMonFan_Valid_Removed(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{"pwm1": 100})
	fan, _ := NewFan(configuration.FanConfig{
		HwMon: &configuration.HwMonFanConfig{Path: dir, Index: 1},
	})
	_ = os.Remove(filepath.Join(dir, "pwm1"))

	// WHEN
	result := fan.Valid()

	// THEN
	assert.False(t, result)
}

func TestDellFan_SharesControlSwitch(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":        100,
		"pwm2":        100,
		"pwm1_enable": 2,
	})
	first, _ := NewFan(configuration.FanConfig{
		Dell: &configuration.HwMonFanConfig{Chip: "dell_smm-virtual-0", Path: dir, Index: 1},
	})
	second, _ := NewFan(configuration.FanConfig{
		Dell: &configuration.HwMonFanConfig{Chip: "dell_smm-virtual-0", Path: dir, Index: 2},
	})

	// WHEN
	err := second.EnableControl()

	// THEN
	assert.NoError(t, err)
	mode, _ := util.ReadIntFromFile(filepath.Join(dir, "pwm1_enable"))
	assert.Equal(t, 1, mode)
	assert.Equal(t, "dell:dell_smm-virtual-0/pwm2", second.GetHwId())
	assert.Equal(t, first.(Coupled).CouplingKey(), second.(Coupled).CouplingKey())
	assert.Equal(t, TypeDell, second.GetType())
}

func TestDellFan_SiblingRestoresOriginalMode(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":        100,
		"pwm2":        100,
		"pwm1_enable": 2,
	})
	first, _ := NewFan(configuration.FanConfig{
		Dell: &configuration.HwMonFanConfig{Chip: "dell_smm-virtual-1", Path: dir, Index: 1},
	})
	second, _ := NewFan(configuration.FanConfig{
		Dell: &configuration.HwMonFanConfig{Chip: "dell_smm-virtual-1", Path: dir, Index: 2},
	})
	assert.NoError(t, first.EnableControl())
	assert.NoError(t, second.EnableControl())

	// WHEN
	err := second.DisableControl()

	// THEN
	assert.NoError(t, err)
	mode, _ := util.ReadIntFromFile(filepath.Join(dir, "pwm1_enable"))
	assert.Equal(t, 2, mode)
}

func TestDellFan_RestoresModeOnce(t *testing.T) {
	// GIVEN
	dir := createHwMonDir(t, map[string]int{
		"pwm1":        100,
		"pwm2":        100,
		"pwm1_enable": 3,
	})
	first, _ := NewFan(configuration.FanConfig{
		Dell: &configuration.HwMonFanConfig{Chip: "dell_smm-virtual-2", Path: dir, Index: 1},
	})
	second, _ := NewFan(configuration.FanConfig{
		Dell: &configuration.HwMonFanConfig{Chip: "dell_smm-virtual-2", Path: dir, Index: 2},
	})
	assert.NoError(t, first.EnableControl())
	assert.NoError(t, first.DisableControl())

	// WHEN
	assert.NoError(t, util.WriteIntToFile(4, filepath.Join(dir, "pwm1_enable")))
	assert.NoError(t, second.EnableControl())
	err := first.DisableControl()

	// THEN
	assert.NoError(t, err)
	mode, _ := util.ReadIntFromFile(filepath.Join(dir, "pwm1_enable"))
	assert.Equal(t, 4, mode)
}

func TestNewFan_NoMatchingType(t *testing.T) {
	// GIVEN
	config := configuration.FanConfig{Label: "fan"}

	// WHEN
	fan, err := NewFan(config)

	// THEN
	assert.Nil(t, fan)
	assert.ErrorIs(t, err, ErrNoMatchingFan)
}
