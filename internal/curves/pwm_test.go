package curves

import (
	"testing"

	"github.com/markusressel/fancond/internal/util"
	"github.com/stretchr/testify/assert"
)

var (
	rpmToPwm = map[int]int{
		0:    0,
		500:  40,
		1500: 255,
	}
	notStopped = func() bool { return false }
	stopped    = func() bool { return true }
)

func TestFindClosestPwm_TieGoesToLowerEntry(t *testing.T) {
	// GIVEN
	table := map[int]int{0: 0, 1200: 100, 2000: 200}

	// THEN
	assert.Equal(t, 100, FindClosestPwm(table, 1600, 0, notStopped))
	assert.Equal(t, 200, FindClosestPwm(table, 1601, 0, notStopped))
	assert.Equal(t, 100, FindClosestPwm(table, 1200, 0, notStopped))
}

func TestFindClosestPwm_OutOfRange(t *testing.T) {
	assert.Equal(t, 0, FindClosestPwm(rpmToPwm, -5, 0, notStopped))
	assert.Equal(t, 255, FindClosestPwm(rpmToPwm, 3000, 0, notStopped))
}

func TestFindClosestPwm_StoppedFanUsesStartPwm(t *testing.T) {
	// WHEN
	running := FindClosestPwm(rpmToPwm, 500, 70, notStopped)
	standing := FindClosestPwm(rpmToPwm, 500, 70, stopped)
	off := FindClosestPwm(rpmToPwm, 0, 70, stopped)

	// THEN
	assert.Equal(t, 40, running)
	assert.Equal(t, 70, standing)
	assert.Equal(t, 0, off)
}

func TestFindClosestPwm_StoppedIsOnlyCheckedWhenNeeded(t *testing.T) {
	// GIVEN
	calls := 0
	check := func() bool {
		calls++
		return true
	}

	// WHEN
	FindClosestPwm(rpmToPwm, 1500, 70, check)

	// THEN
	assert.Equal(t, 0, calls)
}

func TestRpmToPwmFrom_IsMonotonic(t *testing.T) {
	// GIVEN
	samples := map[int]int{
		0:   0,
		70:  600,
		80:  550,
		128: 1200,
		255: 1800,
	}

	// WHEN
	result := RpmToPwmFrom(samples)

	// THEN
	assert.Equal(t, map[int]int{0: 0, 550: 70, 600: 80, 1200: 128, 1800: 255}, result)
	assertMonotonic(t, result)
}

func TestRpmToPwmFrom_DuplicateSpeeds(t *testing.T) {
	// GIVEN
	samples := map[int]int{
		0:  0,
		2:  0,
		4:  0,
		60: 500,
	}

	// WHEN
	result := RpmToPwmFrom(samples)

	// THEN
	assert.Equal(t, map[int]int{0: 4, 500: 60}, result)
	assertMonotonic(t, result)
}

func assertMonotonic(t *testing.T, table map[int]int) {
	lastPwm := -1
	for _, rpm := range util.SortedKeys(table) {
		assert.GreaterOrEqual(t, table[rpm], lastPwm)
		lastPwm = table[rpm]
	}
}

func TestPercentToRpm(t *testing.T) {
	assert.Equal(t, 0, PercentToRpm(rpmToPwm, 0))
	assert.Equal(t, 500, PercentToRpm(rpmToPwm, 1))
	assert.Equal(t, 1000, PercentToRpm(rpmToPwm, 50))
	assert.Equal(t, 1500, PercentToRpm(rpmToPwm, 100))
	assert.Equal(t, 1500, PercentToRpm(rpmToPwm, 150))
}

func TestRpmToPercent(t *testing.T) {
	assert.Equal(t, 0, RpmToPercent(rpmToPwm, 0))
	assert.Equal(t, 1, RpmToPercent(rpmToPwm, 400))
	assert.Equal(t, 50, RpmToPercent(rpmToPwm, 1000))
	assert.Equal(t, 100, RpmToPercent(rpmToPwm, 1500))
}

func TestPwmToRpm(t *testing.T) {
	assert.Equal(t, 500, PwmToRpm(rpmToPwm, 40))
	assert.Equal(t, 1500, PwmToRpm(rpmToPwm, 150))
	assert.Equal(t, 500, PwmToRpm(rpmToPwm, 147))
	assert.Equal(t, 0, PwmToRpm(map[int]int{}, 147))
}
