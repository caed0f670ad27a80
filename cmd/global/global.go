package global

import (
	"fmt"

	"github.com/markusressel/fancond/internal"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/tomlazar/table"
)

var (
	CfgFile string
	EnvFile string
	NoColor bool
	NoStyle bool
	Verbose bool
	DryRun  bool
)

func TableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

// LoadConfig reads and validates the config file, exiting on errors
func LoadConfig() string {
	configuration.LoadEnvFile(EnvFile)
	configPath := configuration.DetectAndReadConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	configuration.LoadConfig()
	if err := configuration.Validate(configPath); err != nil {
		ui.Fatal("%v", err)
	}
	return configPath
}

// ReadDocument returns the device set document of the configured location
func ReadDocument() (devices.Document, error) {
	store := devices.NewStore(configuration.CurrentConfig.DevicesPath)
	return store.Read()
}

// FindFanConfig looks up a fan by label in the device set, falling back to the detected hardware
func FindFanConfig(label string) (configuration.FanConfig, error) {
	doc, err := ReadDocument()
	if err != nil {
		return configuration.FanConfig{}, err
	}
	fanConfigs, _ := internal.HwMonEnumerator{}.Enumerate()

	var available []string
	for _, config := range append(doc.Fans, fanConfigs...) {
		if config.Label == label {
			return config, nil
		}
		available = append(available, config.Label)
	}
	return configuration.FanConfig{}, fmt.Errorf("no fan with label found: %s, options: %s", label, available)
}

// FindSensorConfig looks up a sensor by label in the device set, falling back to the detected hardware
func FindSensorConfig(label string) (configuration.SensorConfig, error) {
	doc, err := ReadDocument()
	if err != nil {
		return configuration.SensorConfig{}, err
	}
	_, sensorConfigs := internal.HwMonEnumerator{}.Enumerate()

	var available []string
	for _, config := range append(doc.Sensors, sensorConfigs...) {
		if config.Label == label {
			return config, nil
		}
		available = append(available, config.Label)
	}
	return configuration.SensorConfig{}, fmt.Errorf("no sensor with label found: %s, options: %s", label, available)
}
