package fan

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal/api"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const progressPollInterval = 500 * time.Millisecond

var (
	forced   bool
	blocking bool
)

var testCmd = &cobra.Command{
	Use:     "test",
	Aliases: []string{"init"},
	Short:   "Calibrate a fan using a running daemon",
	Long: `Measures the relation between drive level and rotational speed of a fan.
The fan is controlled by the daemon afterwards. Joins a test that is already running,
unless --forced is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect()
		if err != nil {
			return err
		}

		query := url.Values{}
		query.Set("forced", strconv.FormatBool(forced))
		query.Set("blocking", strconv.FormatBool(blocking))

		ui.Info("Calibrating fan %s, this may take a while...", fanId)
		var progress api.TestProgress
		if err = client.Post(fanPath(fanId, "test")+"?"+query.Encode(), &progress); err != nil {
			return err
		}
		if !blocking {
			if progress, err = followProgress(client, progress); err != nil {
				return err
			}
		}

		if progress.Progress < 0 {
			return fmt.Errorf("calibration of fan %s failed, see the daemon log for details", fanId)
		}
		ui.Success("Fan %s calibrated", fanId)
		return nil
	},
}

// followProgress polls the test progress until the test is finished
func followProgress(client *global.Client, progress api.TestProgress) (api.TestProgress, error) {
	bar, err := pterm.DefaultProgressbar.WithTotal(100).WithTitle("Calibrating").Start()
	if err != nil {
		return progress, err
	}
	defer func() {
		_, _ = bar.Stop()
	}()

	shown := 0
	for progress.Progress >= 0 && progress.Progress < 100 {
		if progress.Progress > shown {
			bar.Add(progress.Progress - shown)
			shown = progress.Progress
		}
		time.Sleep(progressPollInterval)

		err = client.Get(fanPath(fanId, "test"), &progress)
		if err == nil {
			continue
		}
		// the test task is gone once it is finished, the fan status tells the outcome
		var status controller.FanStatus
		if statusErr := client.Get(fanPath(fanId, ""), &status); statusErr != nil {
			return progress, errors.Join(err, statusErr)
		}
		if status.Calibrated && status.Status == controller.StatusEnabled {
			progress.Progress = 100
		} else {
			progress.Progress = -1
		}
	}
	if progress.Progress > shown {
		bar.Add(progress.Progress - shown)
	}
	return progress, nil
}

func init() {
	testCmd.Flags().BoolVarP(&forced, "forced", "f", false, "Restart a test that is already running")
	testCmd.Flags().BoolVarP(&blocking, "blocking", "b", false, "Wait for the result without showing progress")
	Command.AddCommand(testCmd)
}
