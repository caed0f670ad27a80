package cmd

import (
	"bytes"
	"strconv"

	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/hwmon"
	"github.com/markusressel/fancond/internal/sensors"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect devices",
	Long:  `Detects all fans and sensors and prints them as a list`,
	Run: func(cmd *cobra.Command, args []string) {
		chips := hwmon.GetChips()

		for _, chip := range chips {
			fanConfigs := chip.FanConfigs()
			sensorConfigs := chip.SensorConfigs()
			if len(fanConfigs) <= 0 && len(sensorConfigs) <= 0 {
				continue
			}

			ui.Printfln("> %s (%s)", chip.Identifier, chip.Path)

			var fanRows [][]string
			for _, config := range fanConfigs {
				fan, err := fans.NewFan(config)
				if err != nil {
					continue
				}

				pwmText := "N/A"
				if pwm, err := fan.GetPwm(); err == nil {
					pwmText = strconv.Itoa(pwm)
				}
				rpmText := "N/A"
				if rpm, err := fan.GetRpm(); err == nil {
					rpmText = strconv.Itoa(rpm)
				}

				fanRows = append(fanRows, []string{
					"", strconv.Itoa(hwmonIndex(config)), config.Label, fan.GetType(), rpmText, pwmText,
				})
			}
			fanTable := table.Table{
				Headers: []string{"Fans   ", "Index", "Label", "Type", "RPM", "PWM"},
				Rows:    fanRows,
			}

			var sensorRows [][]string
			for _, config := range sensorConfigs {
				sensor, err := sensors.NewSensor(config)
				if err != nil {
					continue
				}

				valueText := "N/A"
				if value, err := sensor.GetValue(); err == nil {
					valueText = strconv.FormatFloat(value, 'f', 1, 64)
				}

				sensorRows = append(sensorRows, []string{
					"", strconv.Itoa(config.HwMon.Index), config.Label, valueText,
				})
			}
			sensorTable := table.Table{
				Headers: []string{"Sensors", "Index", "Label", "Value"},
				Rows:    sensorRows,
			}

			tables := []table.Table{fanTable, sensorTable}
			for idx, t := range tables {
				if t.Rows == nil {
					continue
				}
				var buf bytes.Buffer
				if err := t.WriteTable(&buf, global.TableConfig()); err != nil {
					ui.Fatal("Error printing table: %v", err)
				}
				if idx < (len(tables) - 1) {
					ui.Printf(buf.String())
				} else {
					ui.Printfln(buf.String())
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func hwmonIndex(config configuration.FanConfig) int {
	if config.Dell != nil {
		return config.Dell.Index
	}
	return config.HwMon.Index
}
