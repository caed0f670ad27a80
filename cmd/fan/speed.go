package fan

import (
	"fmt"
	"strconv"

	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var speedCmd = &cobra.Command{
	Use:   "speed",
	Short: "Get/Set the current drive level (pwm) of a fan",
	Long: `Without an argument the current drive level is printed.
With an argument manual control of the fan is claimed and the given drive level
is applied. Use 'fancond fan mode auto' to hand control back afterwards.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		fan, err := getFan(fanId)
		if err != nil {
			return err
		}

		if len(args) > 0 {
			pwm, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			if pwm < fans.MinPwmValue || pwm > fans.MaxPwmValue {
				return fmt.Errorf("drive level must be between %d and %d, got %d", fans.MinPwmValue, fans.MaxPwmValue, pwm)
			}
			if err = fan.EnableControl(); err != nil {
				return err
			}
			if err = fan.SetPwm(pwm); err != nil {
				return err
			}
			pterm.EnableOutput()
			ui.Success("Set drive level of %s to %d", fan.GetId(), pwm)
			return nil
		}

		pwm, err := fan.GetPwm()
		if err != nil {
			return err
		}
		fmt.Printf("%d", pwm)
		return nil
	},
}

func init() {
	Command.AddCommand(speedCmd)
}
