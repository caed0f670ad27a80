package hwmon

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/util"
	"github.com/md14454/gosensors"
)

const (
	BusTypeIsa  = 1
	BusTypePci  = 2
	BusTypeAcpi = 5
)

var inputIndexPattern = regexp.MustCompile(`^(?:fan|temp)(\d+)_input$`)

// Chip is a single hwmon device with the indices of its fan and temperature inputs
type Chip struct {
	// Identifier is stable across reboots, e.g. "nct6798-isa-0290"
	Identifier string
	Path       string
	Dell       bool

	FanInputs  []int
	TempInputs []int
}

// GetChips enumerates all hwmon devices known to libsensors
func GetChips() []*Chip {
	gosensors.Init()
	defer gosensors.Cleanup()
	detected := gosensors.GetDetectedChips()

	var list []*Chip
	for i := 0; i < len(detected); i++ {
		chip := detected[i]

		c := &Chip{
			Identifier: computeIdentifier(chip),
			Path:       chip.Path,
			Dell:       util.IsDellSmmDevice(chip.Path),
		}

		features := chip.GetFeatures()
		for j := 0; j < len(features); j++ {
			feature := features[j]
			subFeatures := feature.GetSubFeatures()

			switch feature.Type {
			case gosensors.FeatureTypeFan:
				if input, ok := findSubFeature(subFeatures, gosensors.SubFeatureTypeFanInput); ok {
					if index, ok := inputIndex(input.Name); ok {
						c.FanInputs = append(c.FanInputs, index)
					}
				}
			case gosensors.FeatureTypeTemp:
				if input, ok := findSubFeature(subFeatures, gosensors.SubFeatureTypeTempInput); ok {
					if index, ok := inputIndex(input.Name); ok {
						c.TempInputs = append(c.TempInputs, index)
					}
				}
			}
		}

		if len(c.FanInputs) <= 0 && len(c.TempInputs) <= 0 {
			continue
		}
		list = append(list, c)
	}

	return list
}

// Enumerate returns a definition for every controllable fan and every temperature sensor
// of the given chips. Enumerated fans carry no curve and no calibration.
func Enumerate(chips []*Chip) (fanConfigs []configuration.FanConfig, sensorConfigs []configuration.SensorConfig) {
	for _, chip := range chips {
		fanConfigs = append(fanConfigs, chip.FanConfigs()...)
		sensorConfigs = append(sensorConfigs, chip.SensorConfigs()...)
	}
	return fanConfigs, sensorConfigs
}

func (chip *Chip) FanConfigs() []configuration.FanConfig {
	var result []configuration.FanConfig

	inputs := append([]int{}, chip.FanInputs...)
	sort.Ints(inputs)
	for _, index := range inputs {
		// fans without a matching pwm output can only be monitored
		if !util.FileExists(filepath.Join(chip.Path, fmt.Sprintf("pwm%d", index))) {
			continue
		}

		hwmonConfig := &configuration.HwMonFanConfig{
			Chip:  chip.Identifier,
			Path:  chip.Path,
			Index: index,
		}
		config := configuration.FanConfig{
			Label: chip.label(fmt.Sprintf("fan%d_input", index)),
		}
		if chip.Dell {
			config.Dell = hwmonConfig
		} else {
			config.HwMon = hwmonConfig
		}
		result = append(result, config)
	}

	return result
}

func (chip *Chip) SensorConfigs() []configuration.SensorConfig {
	var result []configuration.SensorConfig

	inputs := append([]int{}, chip.TempInputs...)
	sort.Ints(inputs)
	for _, index := range inputs {
		config := configuration.SensorConfig{
			Label: chip.label(fmt.Sprintf("temp%d_input", index)),
			HwMon: &configuration.HwMonSensorConfig{
				Chip:  chip.Identifier,
				Path:  chip.Path,
				Index: index,
			},
		}

		prefix := filepath.Join(chip.Path, fmt.Sprintf("temp%d_", index))
		if value, err := util.ReadIntFromFile(prefix + "min"); err == nil {
			minTemp := value / 1000
			config.Min = &minTemp
		}
		if value, err := util.ReadIntFromFile(prefix + "max"); err == nil {
			maxTemp := value / 1000
			config.Max = &maxTemp
		}

		result = append(result, config)
	}

	return result
}

// label returns "<hwmonX>/<input label>"
func (chip *Chip) label(input string) string {
	_, device := filepath.Split(chip.Path)
	return device + "/" + util.GetLabel(chip.Path, input)
}

func inputIndex(name string) (int, bool) {
	match := inputIndexPattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	index, err := strconv.Atoi(match[1])
	return index, err == nil
}

func findSubFeature(subFeatures []gosensors.SubFeature, input gosensors.SubFeatureType) (gosensors.SubFeature, bool) {
	for _, a := range subFeatures {
		if a.Type == input {
			return a, true
		}
	}
	return gosensors.SubFeature{}, false
}

func computeIdentifier(chip gosensors.Chip) (name string) {
	name = chip.Prefix

	devicePath := chip.Path
	if len(name) <= 0 {
		name = util.GetDeviceName(devicePath)
	}

	if len(name) <= 0 {
		_, name = filepath.Split(devicePath)
	}

	identifier := name
	address := int(chip.Bus.Nr)<<12 | int(chip.Addr)
	switch chip.Bus.Type {
	case BusTypeIsa:
		identifier = fmt.Sprintf("%s-isa-%04x", identifier, address)
	case BusTypePci:
		identifier = fmt.Sprintf("%s-pci-%04x", identifier, address)
	case BusTypeAcpi:
		identifier = fmt.Sprintf("%s-acpi-%d", identifier, chip.Bus.Nr)
	}

	return identifier
}
