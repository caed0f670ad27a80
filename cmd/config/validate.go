package config

import (
	"fmt"
	"os"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/curves"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validates the current configuration and the device set document",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// note: config file path parameter comes from the root command (-c)
		configPath := configuration.DetectAndReadConfigFile()
		ui.Info("Using configuration file at: %s", configPath)
		configuration.LoadConfig()

		if err := configuration.Validate(configPath); err != nil {
			ui.Error("Validation failed: %v", err)
			os.Exit(1)
		}

		store := devices.NewStore(configuration.CurrentConfig.DevicesPath)
		if !store.Exists() {
			ui.Warning("No device set document at %s yet, run 'fancond config write' to create one", configuration.CurrentConfig.DevicesPath)
			ui.Success("Config looks good! :)")
			return nil
		}

		doc, err := store.Read()
		if err != nil {
			ui.Error("Unable to read device set document: %v", err)
			os.Exit(1)
		}
		if errs := validateDocument(doc); len(errs) > 0 {
			for _, err := range errs {
				ui.Error("%v", err)
			}
			os.Exit(1)
		}

		ui.Success("Config looks good! :)")
		return nil
	},
}

func validateDocument(doc devices.Document) (errs []error) {
	labels := map[string]bool{}
	for _, config := range doc.Sensors {
		if err := configuration.ValidateSensor(config); err != nil {
			errs = append(errs, err)
		}
		labels[config.Label] = true
	}

	fanLabels := map[string]bool{}
	for _, config := range doc.Fans {
		fanLabels[config.Label] = true
	}
	for _, config := range doc.Fans {
		if err := configuration.ValidateFan(config); err != nil {
			errs = append(errs, err)
		}
		if len(config.TempToRpm) > 0 && len(config.RpmToPwm) > 0 {
			_, warnings, err := curves.ParseCurve(config.TempToRpm, config.RpmToPwm, nil, nil)
			if err != nil {
				errs = append(errs, fmt.Errorf("fan %s: %w", config.Label, err))
			}
			for _, warning := range warnings {
				ui.Warning("Fan %s: %s", config.Label, warning)
			}
		}
		if len(config.Sensor) > 0 && !labels[config.Sensor] {
			errs = append(errs, fmt.Errorf("fan %s: no sensor with label %s", config.Label, config.Sensor))
		}
		for _, coupled := range config.CoupledWith {
			if !fanLabels[coupled] {
				errs = append(errs, fmt.Errorf("fan %s: no coupled fan with label %s", config.Label, coupled))
			}
		}
	}
	return errs
}

func init() {
	Command.AddCommand(validateCmd)
}
