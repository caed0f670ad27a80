package fan

import (
	"fmt"
	"strings"

	"github.com/markusressel/fancond/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:       "mode [manual|auto]",
	Short:     "Claim or release manual control of a fan",
	Long:      `'manual' claims manual control of the fan, 'auto' hands control back to the hardware.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"manual", "auto"},
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		fan, err := getFan(fanId)
		if err != nil {
			return err
		}

		switch strings.ToLower(args[0]) {
		case "manual", "pwm":
			err = fan.EnableControl()
		case "auto":
			err = fan.DisableControl()
		default:
			return fmt.Errorf("unknown mode: %s, must be one of: 'manual', 'auto'", args[0])
		}
		if err != nil {
			return err
		}

		pterm.EnableOutput()
		ui.Success("Fan %s is now in %s mode", fan.GetId(), strings.ToLower(args[0]))
		return nil
	},
}

func init() {
	Command.AddCommand(modeCmd)
}
