package curves

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/markusressel/fancond/internal/util"
)

// curvePointPattern matches a single "temp: value" item of a curve definition.
// The temperature may be suffixed with C or F, the value with % or PWM.
// Groups: 1 temp, 2 fahrenheit, 3 value, 4 percent, 5 pwm
var curvePointPattern = regexp.MustCompile(`(?i)^\s*(-?\d+)\s*(f)?c?\s*:\s*(\d+)\s*(%)?(pwm)?\s*$`)

// ParseCurve converts a curve definition like "40: 0%, 60: 1200, 176F: 100%" into a temp (°C) -> rpm map.
// Percentage and drive level values are resolved against the given calibration table,
// so a curve using them can only be resolved for a calibrated fan.
// The returned warnings describe points outside the valid range of the sensor.
func ParseCurve(definition string, rpmToPwm map[int]int, minTemp *int, maxTemp *int) (result map[int]int, warnings []string, err error) {
	result = map[int]int{}
	if len(strings.TrimSpace(definition)) <= 0 {
		return result, nil, nil
	}

	for _, item := range strings.Split(definition, ",") {
		if len(strings.TrimSpace(item)) <= 0 {
			continue
		}
		match := curvePointPattern.FindStringSubmatch(item)
		if match == nil {
			return nil, nil, fmt.Errorf("invalid curve item %q in definition %q", strings.TrimSpace(item), definition)
		}

		temp, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, nil, fmt.Errorf("invalid curve item %q: %w", strings.TrimSpace(item), err)
		}
		value, err := strconv.Atoi(match[3])
		if err != nil {
			return nil, nil, fmt.Errorf("invalid curve item %q: %w", strings.TrimSpace(item), err)
		}

		isFahrenheit := len(match[2]) > 0
		isPercent := len(match[4]) > 0
		isPwm := len(match[5]) > 0

		if isFahrenheit {
			temp = util.CelsiusFromFahrenheit(temp)
		}

		rpm := value
		switch {
		case isPercent, isPwm:
			if len(rpmToPwm) <= 0 {
				return nil, nil, fmt.Errorf("curve item %q requires a calibrated fan", strings.TrimSpace(item))
			}
			if isPercent {
				if value > 100 {
					warnings = append(warnings, fmt.Sprintf("invalid value %d%%, using 100%%", value))
				}
				rpm = PercentToRpm(rpmToPwm, value)
			} else {
				if value > 255 {
					warnings = append(warnings, fmt.Sprintf("invalid drive level %d, using 255", value))
				}
				rpm = PwmToRpm(rpmToPwm, util.Coerce(value, 0, 255))
			}
		}

		result[temp] = rpm

		if minTemp != nil && temp < *minTemp {
			warnings = append(warnings, fmt.Sprintf("%d°C < sensor min (%d°C)", temp, *minTemp))
		} else if maxTemp != nil && temp > *maxTemp {
			warnings = append(warnings, fmt.Sprintf("%d°C > sensor max (%d°C)", temp, *maxTemp))
		}
	}

	return result, warnings, nil
}

// FormatPoints formats the given map as "key: value" items, sorted by key
func FormatPoints(points map[int]int) string {
	items := make([]string, 0, len(points))
	for _, key := range util.SortedKeys(points) {
		items = append(items, fmt.Sprintf("%d: %d", key, points[key]))
	}
	return strings.Join(items, ", ")
}
