package configuration

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	// DbPath is the location of the calibration database
	DbPath string `json:"dbPath"`
	// DevicesPath is the location of the device set document, which is written by fancond
	// and may be edited by the user while the daemon is running
	DevicesPath string `json:"devicesPath"`

	// Threads is the maximum number of worker loops used to update sensors and fans, 0 means one per CPU
	Threads int `json:"threads"`
	// TestRetries is the number of additional calibration attempts after a failed one
	TestRetries int `json:"testRetries"`
	// Time to wait between a set-pwm and get-pwm call. Used to give hardware time to
	// respond to the set-pwm command.
	PwmSetDelay time.Duration `json:"pwmSetDelay"`

	Calibration CalibrationConfig `json:"calibration"`

	Statistics StatisticsConfig `json:"statistics"`
	Api        ApiConfig        `json:"api"`
	Mqtt       MqttConfig       `json:"mqtt"`
	InfluxDb   InfluxDbConfig   `json:"influxDb"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("fancond")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/fancond/")
	}

	viper.SetEnvPrefix("fancond")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

// LoadEnvFile loads the given dotenv file into the process environment,
// so credentials for mqtt and influxdb don't have to be stored in the config file.
func LoadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		ui.Warning("Unable to load env file %s: %v", path, err)
		return
	}
	ui.Debug("Loaded environment from %s", path)
}

func setDefaultValues() {
	viper.SetDefault("dbPath", "/etc/fancond/fancond.db")
	viper.SetDefault("devicesPath", "/etc/fancond/devices.yaml")
	viper.SetDefault("threads", 0)
	viper.SetDefault("testRetries", 2)
	viper.SetDefault("pwmSetDelay", 0)

	viper.SetDefault("calibration.marginPwm", 6)
	viper.SetDefault("calibration.stabilisedThreshold", 0.05)
	viper.SetDefault("calibration.maxPolls", 40)
	viper.SetDefault("calibration.maxClaimPolls", 10)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientId", "fancond")
	viper.SetDefault("mqtt.topicPrefix", "fancond")
	viper.SetDefault("mqtt.qos", 1)

	viper.SetDefault("influxDb.enabled", false)
	viper.SetDefault("influxDb.url", "http://localhost:8086")
	viper.SetDefault("influxDb.bucket", "fancond")
	viper.SetDefault("influxDb.org", "fancond")
}

// DetectConfigFile returns the path of the config file that would be used, without reading it
func DetectConfigFile() string {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return ""
		}
	}
	return viper.ConfigFileUsed()
}

// DetectAndReadConfigFile reads the config file, using defaults if none exists
func DetectAndReadConfigFile() string {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			ui.Warning("No config file found, using default values")
			return ""
		}
		ui.Fatal("Error reading config file, %s", err)
	}
	return viper.ConfigFileUsed()
}

func LoadConfig() {
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
