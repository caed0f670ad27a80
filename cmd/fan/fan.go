package fan

import (
	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/spf13/cobra"
)

var fanId string

var Command = &cobra.Command{
	Use:              "fan",
	Short:            "Fan related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(
		&fanId,
		"id", "i",
		"",
		"Fan label as found in the device set document",
	)
	_ = Command.MarkPersistentFlagRequired("id")
}

// getFan returns a driver for the fan with the given label, without involving a running daemon
func getFan(id string) (fans.Fan, error) {
	global.LoadConfig()

	config, err := global.FindFanConfig(id)
	if err != nil {
		return nil, err
	}
	return fans.NewFan(config)
}

// fanPath returns the api path of the given fan resource
func fanPath(id string, resource string) string {
	path := "/fan/" + id + "/"
	if len(resource) > 0 {
		path += resource + "/"
	}
	return path
}
