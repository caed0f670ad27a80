package cmd

import (
	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/spf13/cobra"
)

var testFanId string

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Calibrate fans without running the daemon",
	Long: `Calibrates all fans that are not ignored (or only the one given by --id),
retrying failed attempts as configured by testRetries. Results are stored in the
calibration database and the device set document. Control of every fan is
released afterwards.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		global.LoadConfig()

		ctrl := internal.CreateController(false)
		if err := ctrl.Reload(); err != nil {
			ui.Fatal("Unable to load devices: %v", err)
		}
		defer ctrl.DisableAll()

		failed := 0
		for _, fan := range ctrl.Snapshot().Fans {
			if fan.Ignored || (len(testFanId) > 0 && fan.Label != testFanId) {
				continue
			}
			if _, err := ctrl.Test(fan.Label, true, true, nil); err != nil {
				failed++
			}
		}

		if failed > 0 {
			ui.Warning("Calibration of %d fan(s) failed", failed)
			return
		}
		ui.Success("Done!")
	},
}

func init() {
	testCmd.Flags().StringVarP(&testFanId, "id", "i", "", "Only calibrate the fan with the given label")
	rootCmd.AddCommand(testCmd)
}
