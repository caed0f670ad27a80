package fan

import (
	"github.com/markusressel/fancond/internal/controller"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Let a running daemon control a fan, together with all fans coupled to it",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return postAndPrint("enable")
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop controlling a fan and hand control back to the hardware",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return postAndPrint("disable")
	},
}

func postAndPrint(action string) error {
	client, err := connect()
	if err != nil {
		return err
	}

	var status controller.FanStatus
	if err = client.Post(fanPath(fanId, action), &status); err != nil {
		return err
	}
	return printStatus(status)
}

func init() {
	Command.AddCommand(enableCmd)
	Command.AddCommand(disableCmd)
}
