package fan

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/curves"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/persistence"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the measured calibration curve of a fan to console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		global.LoadConfig()

		config, err := global.FindFanConfig(fanId)
		if err != nil {
			return err
		}
		fan, err := fans.NewFan(config)
		if err != nil {
			return err
		}

		startPwm := config.StartPwm
		rpmToPwm := config.RpmToPwm
		calibratedAt := "N/A"

		p := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
		record, err := p.LoadCalibration(fan.GetHwId())
		switch {
		case err == nil:
			startPwm = record.StartPwm
			rpmToPwm = record.RpmToPwm
			calibratedAt = record.Timestamp.Format("2006-01-02 15:04:05")
		case !errors.Is(err, persistence.ErrNotFound):
			ui.Warning("Unable to load calibration of %s: %v", fanId, err)
		}

		// print table
		ui.Printfln(config.Label)
		tab := table.Table{
			Headers: []string{"", ""},
			Rows: [][]string{
				{"Hardware", fan.GetHwId()},
				{"Start PWM", strconv.Itoa(startPwm)},
				{"Max RPM", strconv.Itoa(curves.MaxRpm(rpmToPwm))},
				{"Calibrated", calibratedAt},
				{"Curve", config.TempToRpm},
			},
		}
		var buf bytes.Buffer
		if err = tab.WriteTable(&buf, global.TableConfig()); err != nil {
			return err
		}
		ui.Printfln(buf.String())

		// print graph
		if len(rpmToPwm) <= 0 {
			ui.Printfln("No fan curve data yet...")
			return nil
		}

		pwmToRpm := map[int]int{}
		for rpm, pwm := range rpmToPwm {
			if existing, ok := pwmToRpm[pwm]; !ok || rpm > existing {
				pwmToRpm[pwm] = rpm
			}
		}
		values := make([]float64, 0, len(pwmToRpm))
		for _, pwm := range util.SortedKeys(pwmToRpm) {
			values = append(values, float64(pwmToRpm[pwm]))
		}

		caption := "RPM / PWM"
		graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
		ui.Printfln(graph)
		return nil
	},
}

func init() {
	Command.AddCommand(curveCmd)
}
