package curves

import "github.com/markusressel/fancond/internal/util"

// minorChangeRatio is the fraction of the max rpm below which a change is applied immediately
const minorChangeRatio = 0.1

// Smoothing holds the per fan state needed to gradually move
// from one target speed to the next.
type Smoothing struct {
	// TargetedRpm is the last speed returned by Smooth
	TargetedRpm int
	// RequestedRpm is the target the current smoothing run is heading to
	RequestedRpm int
	// RemainingIntervals is the number of ticks left to reach RequestedRpm
	RemainingIntervals int
	// TopStickinessRemaining is the number of ticks a decrease is still held back
	TopStickinessRemaining int
	// JustStarted causes the next request to be accepted immediately
	JustStarted bool
}

func NewSmoothing() *Smoothing {
	return &Smoothing{JustStarted: true}
}

// Reset causes the next call to Smooth to accept its request without smoothing
func (s *Smoothing) Reset() {
	s.JustStarted = true
}

// Smooth returns the speed to apply on this tick, given the requested speed.
// maxRpm is the highest calibrated speed of the fan.
func (s *Smoothing) Smooth(rpm int, maxRpm int, intervals int, stickiness int) int {
	if intervals < 1 {
		intervals = 1
	}

	if s.JustStarted {
		s.JustStarted = false
		s.RemainingIntervals = intervals
		s.TopStickinessRemaining = stickiness
		s.TargetedRpm = rpm
		s.RequestedRpm = rpm
		return rpm
	}

	delta := rpm - s.TargetedRpm
	if delta == 0 {
		s.RequestedRpm = rpm
		return rpm
	}

	if delta < 0 {
		if s.TopStickinessRemaining > 0 {
			s.TopStickinessRemaining--
			return s.TargetedRpm
		}
	} else {
		s.TopStickinessRemaining = stickiness
	}

	if float64(util.Abs(delta)) < minorChangeRatio*float64(maxRpm) {
		s.TargetedRpm = rpm
		s.RequestedRpm = rpm
		s.RemainingIntervals = intervals
		return rpm
	}

	if rpm != s.RequestedRpm || s.RemainingIntervals <= 0 {
		s.RequestedRpm = rpm
		s.RemainingIntervals = intervals
	}

	s.TargetedRpm += delta / s.RemainingIntervals
	s.RemainingIntervals--
	return s.TargetedRpm
}
