package fan

import (
	"errors"
	"time"

	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/persistence"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the calibration of a given fan",
	Long: `Removes the calibration of the fan from the calibration database
and from the device set document. A running daemon picks up the change
and treats the fan as uncalibrated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fan, err := getFan(fanId)
		if err != nil {
			return err
		}

		dbPath := configuration.CurrentConfig.DbPath
		ui.Info("Using persistence at: %s", dbPath)

		p := persistence.NewPersistence(dbPath)
		if err = p.DeleteCalibration(fan.GetHwId()); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return err
		}

		doc, err := global.ReadDocument()
		if err != nil {
			return err
		}
		if !resetCalibration(&doc, fan.GetId()) {
			ui.Success("Done!")
			return nil
		}

		store := devices.NewStore(configuration.CurrentConfig.DevicesPath)
		if _, err = store.WriteWithBackup(doc, time.Now()); err != nil {
			return err
		}
		ui.Success("Done!")
		return nil
	},
}

// resetCalibration removes the calibration of the fan with the given label from the document
func resetCalibration(doc *devices.Document, label string) bool {
	for i := range doc.Fans {
		config := &doc.Fans[i]
		if config.Label != label {
			continue
		}
		if len(config.RpmToPwm) <= 0 && config.StartPwm == 0 {
			return false
		}
		config.RpmToPwm = nil
		config.StartPwm = 0
		return true
	}
	return false
}

func init() {
	Command.AddCommand(resetCmd)
}
