package curves

import (
	"math"
	"sort"

	"github.com/markusressel/fancond/internal/util"
)

// Params holds the controller tunables that influence curve evaluation
type Params struct {
	// Dynamic enables interpolation between two curve points, otherwise the value of the lower point is used
	Dynamic bool
	// LegacyInterpolation weighs the interpolation with temp / (floor + ceil)
	// instead of the position of temp between floor and ceil
	LegacyInterpolation bool
	// SmoothingIntervals is the number of ticks used to reach a new target speed
	SmoothingIntervals int
	// TopStickinessIntervals is the number of ticks a previous, higher target is held
	// before the speed is allowed to decrease
	TopStickinessIntervals int
}

// Curve holds the calibration and user data needed to evaluate a drive level for a given temperature
type Curve struct {
	// TempToRpm maps °C to target rotation speed
	TempToRpm map[int]int `json:"tempToRpm"`
	// RpmToPwm maps rotation speed to the drive level needed to reach it
	RpmToPwm map[int]int `json:"rpmToPwm"`
	// StartPwm is the lowest drive level that reliably starts the fan from a stand still
	StartPwm int `json:"startPwm"`
}

// Evaluation is the result of a single curve evaluation
type Evaluation struct {
	TargetRpm   int
	SmoothedRpm int
	Pwm         int
}

// Evaluate computes the drive level for the given temperature.
// stopped is only consulted when the resolved drive level is below the start level.
func (c Curve) Evaluate(smoothing *Smoothing, temp float64, stopped func() bool, params Params) Evaluation {
	target := TargetRpm(c.TempToRpm, temp, params.Dynamic, params.LegacyInterpolation)
	smoothed := smoothing.Smooth(target, MaxRpm(c.RpmToPwm), params.SmoothingIntervals, params.TopStickinessIntervals)
	pwm := FindClosestPwm(c.RpmToPwm, smoothed, c.StartPwm, stopped)
	return Evaluation{
		TargetRpm:   target,
		SmoothedRpm: smoothed,
		Pwm:         pwm,
	}
}

// TargetRpm maps the given temperature to a rotation speed using the given temp -> rpm points
func TargetRpm(tempToRpm map[int]int, temp float64, dynamic bool, legacy bool) int {
	if len(tempToRpm) <= 0 {
		return 0
	}
	keys := util.SortedKeys(tempToRpm)

	// index of the first key >= temp
	idx := sort.Search(len(keys), func(i int) bool {
		return float64(keys[i]) >= temp
	})

	if idx >= len(keys) {
		return tempToRpm[keys[len(keys)-1]]
	}
	if idx == 0 || float64(keys[idx]) == temp {
		return tempToRpm[keys[idx]]
	}

	floorTemp, ceilTemp := keys[idx-1], keys[idx]
	floorRpm, ceilRpm := tempToRpm[floorTemp], tempToRpm[ceilTemp]
	if !dynamic {
		return floorRpm
	}

	var weight float64
	if legacy {
		weight = temp / float64(floorTemp+ceilTemp)
	} else {
		weight = util.Ratio(temp, float64(floorTemp), float64(ceilTemp))
	}
	return floorRpm + int(math.Floor(weight*float64(ceilRpm-floorRpm)))
}

// MaxRpm returns the highest rotation speed of the given calibration table
func MaxRpm(rpmToPwm map[int]int) int {
	result := 0
	for rpm := range rpmToPwm {
		if rpm > result {
			result = rpm
		}
	}
	return result
}
