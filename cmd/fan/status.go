package fan

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
	Short: "Print the status of a fan controlled by a running daemon",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect()
		if err != nil {
			return err
		}

		var status controller.FanStatus
		if err = client.Get(fanPath(fanId, ""), &status); err != nil {
			return err
		}
		return printStatus(status)
	},
}

func connect() (*global.Client, error) {
	global.LoadConfig()
	return global.NewConfiguredClient()
}

func printStatus(status controller.FanStatus) error {
	tab := table.Table{
		Headers: []string{"", ""},
		Rows: [][]string{
			{"Label", status.Label},
			{"Status", status.Status.String()},
			{"Calibrated", strconv.FormatBool(status.Calibrated)},
			{"Sensor", status.Sensor},
			{"Temperature", fmt.Sprintf("%.1f °C", status.Telemetry.Temp)},
			{"Target RPM", strconv.Itoa(status.Telemetry.TargetRpm)},
			{"Smoothed RPM", strconv.Itoa(status.Telemetry.SmoothedRpm)},
			{"PWM", strconv.Itoa(status.Telemetry.Pwm)},
			{"RPM", strconv.Itoa(status.Telemetry.Rpm)},
			{"Unexpected PWM", strconv.Itoa(status.Statistics.UnexpectedPwmValueCount)},
			{"Lost control", strconv.Itoa(status.Statistics.LostControlCount)},
		},
	}
	if status.Status == controller.StatusTesting {
		tab.Rows = append(tab.Rows, []string{"Test progress", fmt.Sprintf("%d%%", status.Progress)})
	}

	var buf bytes.Buffer
	if err := tab.WriteTable(&buf, global.TableConfig()); err != nil {
		return err
	}
	ui.Printfln(buf.String())
	return nil
}

func init() {
	Command.AddCommand(statusCmd)
}
