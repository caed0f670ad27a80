package curves

import (
	"sort"

	"github.com/markusressel/fancond/internal/util"
)

// FindClosestPwm returns the drive level of the calibration entry whose speed is closest to rpm,
// preferring the lower entry when both neighbours are equally close.
// If the fan is stopped and the resolved drive level is too low to start it, startPwm is returned instead.
func FindClosestPwm(rpmToPwm map[int]int, rpm int, startPwm int, stopped func() bool) int {
	if len(rpmToPwm) <= 0 {
		return startPwm
	}
	keys := util.SortedKeys(rpmToPwm)

	var pwm int
	idx := sort.SearchInts(keys, rpm)
	switch {
	case idx == 0:
		pwm = rpmToPwm[keys[0]]
	case idx >= len(keys):
		pwm = rpmToPwm[keys[len(keys)-1]]
	default:
		lower, upper := keys[idx-1], keys[idx]
		if rpm-lower <= upper-rpm {
			pwm = rpmToPwm[lower]
		} else {
			pwm = rpmToPwm[upper]
		}
	}

	if pwm > 0 && pwm < startPwm && stopped != nil && stopped() {
		return startPwm
	}
	return pwm
}

// RpmToPwmFrom builds a rpm -> pwm table from probed pwm -> rpm samples.
// Observed speeds are sorted independently of the drive levels, so the resulting table
// never maps a higher speed to a lower drive level, even if the samples were noisy.
func RpmToPwmFrom(pwmToRpm map[int]int) map[int]int {
	pwms := util.SortedKeys(pwmToRpm)
	rpms := util.SortedValues(pwmToRpm)

	result := map[int]int{}
	for i := 0; i < len(pwms) && i < len(rpms); i++ {
		result[rpms[i]] = pwms[i]
	}
	return result
}

// minRunningRpm returns the lowest non-zero speed of the given table, which represents 1%
func minRunningRpm(keys []int) int {
	if len(keys) > 1 && keys[0] == 0 {
		return keys[1]
	}
	return keys[0]
}

// PercentToRpm maps a percentage of the usable speed range to a speed,
// where 1% is the lowest running speed and 100% the highest calibrated speed.
func PercentToRpm(rpmToPwm map[int]int, percent int) int {
	if percent <= 0 || len(rpmToPwm) <= 0 {
		return 0
	}
	percent = util.Coerce(percent, 1, 100)

	keys := util.SortedKeys(rpmToPwm)
	minRunning := minRunningRpm(keys)
	if percent == 1 {
		return minRunning
	}
	rpmRange := keys[len(keys)-1] - minRunning
	return percent*rpmRange/100 + minRunning
}

// RpmToPercent is the inverse of PercentToRpm
func RpmToPercent(rpmToPwm map[int]int, rpm int) int {
	if rpm <= 0 || len(rpmToPwm) <= 0 {
		return 0
	}
	keys := util.SortedKeys(rpmToPwm)
	minRunning := minRunningRpm(keys)
	adjusted := rpm - minRunning
	rpmRange := keys[len(keys)-1] - minRunning
	if adjusted <= 0 || rpmRange <= 0 {
		return 1
	}
	percent := (adjusted*100 + rpmRange - 1) / rpmRange
	return util.Coerce(percent, 1, 100)
}

// PwmToRpm returns the speed of the calibration entry whose drive level is closest to pwm
func PwmToRpm(rpmToPwm map[int]int, pwm int) int {
	if len(rpmToPwm) <= 0 {
		return 0
	}
	keys := util.SortedKeys(rpmToPwm)

	best := keys[0]
	bestDistance := util.Abs(rpmToPwm[best] - pwm)
	for _, rpm := range keys[1:] {
		distance := util.Abs(rpmToPwm[rpm] - pwm)
		if distance < bestDistance {
			best = rpm
			bestDistance = distance
		}
	}
	return best
}
