package cmd

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of all devices of a running daemon",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		global.LoadConfig()
		client, err := global.NewConfiguredClient()
		if err != nil {
			return err
		}

		var snapshot controller.StatusSnapshot
		if err = client.Get("/status/", &snapshot); err != nil {
			return err
		}

		ui.Printfln("Controller: %s", snapshot.State)

		var fanRows [][]string
		for _, fan := range snapshot.Fans {
			if fan.Ignored {
				continue
			}
			status := fan.Status.String()
			if fan.Status == controller.StatusTesting {
				status = fmt.Sprintf("%s (%d%%)", status, fan.Progress)
			}
			fanRows = append(fanRows, []string{
				fan.Label, status, strconv.FormatBool(fan.Calibrated), fan.Sensor,
				strconv.Itoa(fan.Telemetry.TargetRpm), strconv.Itoa(fan.Telemetry.Pwm), strconv.Itoa(fan.Telemetry.Rpm),
			})
		}
		var sensorRows [][]string
		for _, sensor := range snapshot.Sensors {
			if sensor.Ignored {
				continue
			}
			sensorRows = append(sensorRows, []string{
				sensor.Label, fmt.Sprintf("%.1f", sensor.Value), fmt.Sprintf("%.1f", sensor.Average),
			})
		}

		tables := []table.Table{
			{Headers: []string{"Fan", "Status", "Calibrated", "Sensor", "Target RPM", "PWM", "RPM"}, Rows: fanRows},
			{Headers: []string{"Sensor", "Value", "Average"}, Rows: sensorRows},
		}
		for _, t := range tables {
			if t.Rows == nil {
				continue
			}
			var buf bytes.Buffer
			if err := t.WriteTable(&buf, global.TableConfig()); err != nil {
				return err
			}
			ui.Printfln(buf.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
