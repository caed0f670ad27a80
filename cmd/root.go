package cmd

import (
	"fmt"
	"os"

	"github.com/markusressel/fancond/cmd/config"
	"github.com/markusressel/fancond/cmd/fan"
	"github.com/markusressel/fancond/cmd/global"
	"github.com/markusressel/fancond/cmd/sensor"
	"github.com/markusressel/fancond/internal"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fancond",
	Short: "A daemon to control the fans of a computer.",
	Long: `fancond is a daemon that calibrates the fans of your computer
and controls their speed based on temperature sensors.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupUi()
	},
	// this is the default command to run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		printHeader()
		global.LoadConfig()
		internal.RunDaemon(global.DryRun)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&global.CfgFile, "config", "c", "", "config file (default is $HOME/fancond.yaml)")
	rootCmd.PersistentFlags().StringVarP(&global.EnvFile, "env-file", "", "", "dotenv file with credentials for mqtt and influxdb")
	rootCmd.PersistentFlags().BoolVarP(&global.NoColor, "no-color", "", false, "Disable all terminal output coloration")
	rootCmd.PersistentFlags().BoolVarP(&global.NoStyle, "no-style", "", false, "Disable all terminal output styling")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "More verbose output")
	rootCmd.Flags().BoolVarP(&global.DryRun, "dry-run", "", false, "Only use the device set document, without detecting hardware or requiring root")

	rootCmd.AddCommand(config.Command)
	rootCmd.AddCommand(fan.Command)
	rootCmd.AddCommand(sensor.Command)
}

func setupUi() {
	ui.SetDebugEnabled(global.Verbose)

	if global.NoColor {
		pterm.DisableColor()
	}
	if global.NoStyle {
		pterm.DisableStyling()
	}
}

// Print a large text with the LetterStyle from the standard theme.
func printHeader() {
	err := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("fan", pterm.NewStyle(pterm.FgLightBlue)),
		pterm.NewLettersFromStringWithStyle("cond", pterm.NewStyle(pterm.FgWhite)),
	).Render()
	if err != nil {
		fmt.Println("fancond")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		configuration.InitConfig(global.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
