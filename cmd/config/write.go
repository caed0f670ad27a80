package config

import (
	"time"

	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/reconcile"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Adds all detected fans and sensors to the device set document",
	Long: `Detects all fans and sensors and adds the ones that are not part of the
device set document yet. Existing entries are kept as they are, the previous
document is backed up next to it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		global.LoadConfig()

		store := devices.NewStore(configuration.CurrentConfig.DevicesPath)
		doc, err := store.Read()
		if err != nil {
			return err
		}

		set := devices.New()
		fanList, sensorList := devices.FromDocument(doc)
		for _, sensor := range sensorList {
			set.Sensors[sensor.Label()] = sensor
		}
		for _, fan := range fanList {
			set.Fans[fan.Label()] = fan
		}

		fanConfigs, sensorConfigs := internal.HwMonEnumerator{}.Enumerate()
		added := mergeDetected(set, fanConfigs, sensorConfigs)
		if added <= 0 {
			ui.Success("Device set document is up to date")
			return nil
		}

		backupPath, err := store.WriteWithBackup(set.ToDocument(doc.Controller), time.Now())
		if err != nil {
			return err
		}
		if len(backupPath) > 0 {
			ui.Info("Previous document saved as %s", backupPath)
		}
		ui.Success("Added %d device(s) to %s", added, store.Path)
		return nil
	},
}

// mergeDetected adds all detected devices whose hardware is not part of the given set yet
func mergeDetected(set *devices.Devices, fanConfigs []configuration.FanConfig, sensorConfigs []configuration.SensorConfig) (added int) {
	var detectedSensors []*devices.Sensor
	for _, config := range sensorConfigs {
		sensor, err := devices.NewSensor(config)
		if err != nil {
			ui.Warning("Skipping sensor %s: %v", config.Label, err)
			continue
		}
		detectedSensors = append(detectedSensors, sensor)
	}
	for _, sensor := range reconcile.Merge(set.Sensors, detectedSensors, false, nil).Inserts {
		if _, exists := set.Sensors[sensor.Label()]; exists {
			ui.Warning("Skipping sensor %s: label is already in use", sensor.Label())
			continue
		}
		ui.Info("Adding sensor %s", sensor.Label())
		set.Sensors[sensor.Label()] = sensor
		added++
	}

	var detectedFans []*devices.Fan
	for _, config := range fanConfigs {
		fan, err := devices.NewFan(config)
		if err != nil {
			ui.Warning("Skipping fan %s: %v", config.Label, err)
			continue
		}
		detectedFans = append(detectedFans, fan)
	}
	for _, fan := range reconcile.Merge(set.Fans, detectedFans, false, nil).Inserts {
		if _, exists := set.Fans[fan.Label()]; exists {
			ui.Warning("Skipping fan %s: label is already in use", fan.Label())
			continue
		}
		ui.Info("Adding fan %s", fan.Label())
		set.Fans[fan.Label()] = fan
		added++
	}

	return added
}

func init() {
	Command.AddCommand(writeCmd)
}
