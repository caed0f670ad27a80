package curves

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func startedSmoothing(rpm int, stickiness int) *Smoothing {
	s := NewSmoothing()
	s.Smooth(rpm, 2000, 4, stickiness)
	return s
}

func TestSmoothing_AcceptsFirstRequestImmediately(t *testing.T) {
	// GIVEN
	s := NewSmoothing()

	// WHEN
	result := s.Smooth(1500, 2000, 4, 4)

	// THEN
	assert.Equal(t, 1500, result)
	assert.False(t, s.JustStarted)
	assert.Equal(t, 4, s.TopStickinessRemaining)
}

func TestSmoothing_ConvergesWithinWindow(t *testing.T) {
	// GIVEN
	intervals := 4
	s := startedSmoothing(0, 0)

	// WHEN
	var results []int
	for i := 0; i < intervals; i++ {
		results = append(results, s.Smooth(2000, 2000, intervals, 0))
	}

	// THEN
	assert.Equal(t, []int{500, 1000, 1500, 2000}, results)
}

func TestSmoothing_DistanceIsNonIncreasing(t *testing.T) {
	for _, intervals := range []int{1, 2, 3, 5, 8} {
		// GIVEN
		s := startedSmoothing(100, 0)
		target := 1937
		lastDistance := target - 100

		// WHEN
		for i := 0; i < intervals; i++ {
			result := s.Smooth(target, 2000, intervals, 0)

			// THEN
			distance := target - result
			assert.GreaterOrEqual(t, distance, 0)
			assert.LessOrEqual(t, distance, lastDistance)
			lastDistance = distance
		}
		assert.Equal(t, 0, lastDistance, "intervals %d", intervals)
	}
}

func TestSmoothing_StickinessHoldsDecrease(t *testing.T) {
	// GIVEN
	s := startedSmoothing(2000, 2)

	// WHEN
	first := s.Smooth(0, 2000, 4, 2)
	second := s.Smooth(0, 2000, 4, 2)
	third := s.Smooth(0, 2000, 4, 2)

	// THEN
	assert.Equal(t, 2000, first)
	assert.Equal(t, 2000, second)
	assert.Equal(t, 1500, third)
	assert.Equal(t, 0, s.TopStickinessRemaining)
}

func TestSmoothing_IncreaseResetsStickiness(t *testing.T) {
	// GIVEN
	s := startedSmoothing(1000, 2)
	held := s.Smooth(500, 2000, 4, 2)

	// WHEN
	result := s.Smooth(1500, 2000, 4, 2)

	// THEN
	assert.Equal(t, 1000, held)
	assert.Equal(t, 1125, result)
	assert.Equal(t, 2, s.TopStickinessRemaining)
}

func TestSmoothing_MinorChangeIsAppliedImmediately(t *testing.T) {
	// GIVEN
	s := startedSmoothing(1000, 0)

	// WHEN
	up := s.Smooth(1100, 2000, 4, 0)
	down := s.Smooth(950, 2000, 4, 0)

	// THEN
	assert.Equal(t, 1100, up)
	assert.Equal(t, 950, down)
}

func TestSmoothing_ChangedRequestRestartsCounter(t *testing.T) {
	// GIVEN
	s := startedSmoothing(0, 0)
	s.Smooth(2000, 2000, 4, 0)
	assert.Equal(t, 3, s.RemainingIntervals)

	// WHEN
	s.Smooth(1600, 2000, 4, 0)

	// THEN
	assert.Equal(t, 1600, s.RequestedRpm)
	assert.Equal(t, 3, s.RemainingIntervals)
}

func TestSmoothing_RemainingIntervalsNeverNegative(t *testing.T) {
	// GIVEN
	s := NewSmoothing()
	random := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		// WHEN
		s.Smooth(random.Intn(2500), 2400, 1+random.Intn(6), random.Intn(4))

		// THEN
		assert.GreaterOrEqual(t, s.RemainingIntervals, 0)
		assert.GreaterOrEqual(t, s.TopStickinessRemaining, 0)
	}
}

func TestSmoothing_Reset(t *testing.T) {
	// GIVEN
	s := startedSmoothing(0, 4)

	// WHEN
	s.Reset()
	result := s.Smooth(1800, 2000, 4, 4)

	// THEN
	assert.Equal(t, 1800, result)
}
