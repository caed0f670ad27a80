package util

import "golang.org/x/exp/constraints"

// Coerce returns a value that is at least min and at most max, otherwise equal to value
func Coerce[T constraints.Integer | constraints.Float](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func Abs[T constraints.Signed | constraints.Float](value T) T {
	if value < 0 {
		return -value
	}
	return value
}

// Ratio calculates the ratio that target has in comparison to rangeMin and rangeMax
// Make sure that:
// rangeMin <= target <= rangeMax
// rangeMax - rangeMin != 0
func Ratio(target float64, rangeMin float64, rangeMax float64) float64 {
	return (target - rangeMin) / (rangeMax - rangeMin)
}

// CelsiusFromFahrenheit converts a temperature given in °F to °C, rounding towards zero
func CelsiusFromFahrenheit(fahrenheit int) int {
	return (fahrenheit - 32) * 5 / 9
}
