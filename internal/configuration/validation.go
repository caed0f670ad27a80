package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/markusressel/fancond/internal/util"
)

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	if len(config.DbPath) <= 0 {
		return errors.New("dbPath must not be empty")
	}
	if len(config.DevicesPath) <= 0 {
		return errors.New("devicesPath must not be empty")
	}
	if config.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", config.Threads)
	}
	if config.TestRetries < 0 {
		return fmt.Errorf("testRetries must be >= 0, got %d", config.TestRetries)
	}
	if config.PwmSetDelay < 0 {
		return fmt.Errorf("pwmSetDelay must be >= 0, got %s", config.PwmSetDelay)
	}

	calibration := config.Calibration
	if calibration.MarginPwm < 0 || calibration.MarginPwm > 255 {
		return fmt.Errorf("calibration.marginPwm must be between 0 and 255, got %d", calibration.MarginPwm)
	}
	if calibration.StabilisedThreshold <= 0 || calibration.StabilisedThreshold >= 1 {
		return fmt.Errorf("calibration.stabilisedThreshold must be between 0 and 1, got %v", calibration.StabilisedThreshold)
	}
	if calibration.MaxPolls < 3 {
		return fmt.Errorf("calibration.maxPolls must be >= 3, got %d", calibration.MaxPolls)
	}

	if err := validatePort("statistics", config.Statistics.Enabled, config.Statistics.Port); err != nil {
		return err
	}
	if err := validatePort("api", config.Api.Enabled, config.Api.Port); err != nil {
		return err
	}

	if config.Mqtt.Enabled {
		if len(config.Mqtt.Broker) <= 0 {
			return errors.New("mqtt.broker must not be empty")
		}
		if config.Mqtt.Qos < 0 || config.Mqtt.Qos > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", config.Mqtt.Qos)
		}
	}

	if config.InfluxDb.Enabled {
		if len(config.InfluxDb.Url) <= 0 {
			return errors.New("influxDb.url must not be empty")
		}
		if len(config.InfluxDb.Bucket) <= 0 || len(config.InfluxDb.Org) <= 0 {
			return errors.New("influxDb.org and influxDb.bucket must not be empty")
		}
	}

	// credentials may be stored in the config file
	if len(path) > 0 && (len(config.Mqtt.Password) > 0 || len(config.InfluxDb.Token) > 0) {
		if _, err := util.CheckFilePermissionsForExecution(path); err != nil {
			return fmt.Errorf("config file '%s' contains credentials but has invalid permissions: %w", path, err)
		}
	}

	return nil
}

func validatePort(name string, enabled bool, port int) error {
	if enabled && (port <= 0 || port >= 65535) {
		return fmt.Errorf("%s.port must be between 1 and 65534, got %d", name, port)
	}
	return nil
}

// ValidateFan checks a single fan definition of the device set document
func ValidateFan(fanConfig FanConfig) error {
	if len(strings.TrimSpace(fanConfig.Label)) <= 0 {
		return errors.New("fan label is missing")
	}

	subConfigs := 0
	for _, present := range []bool{fanConfig.HwMon != nil, fanConfig.Dell != nil, fanConfig.File != nil, fanConfig.Cmd != nil} {
		if present {
			subConfigs++
		}
	}
	if subConfigs > 1 {
		return fmt.Errorf("fan %s: only one fan type can be used per fan definition block", fanConfig.Label)
	}
	if subConfigs <= 0 {
		return fmt.Errorf("fan %s: sub-configuration for fan is missing, use one of: hwmon | dell | file | cmd", fanConfig.Label)
	}

	for _, hwmon := range []*HwMonFanConfig{fanConfig.HwMon, fanConfig.Dell} {
		if hwmon == nil {
			continue
		}
		if len(hwmon.Path) <= 0 {
			return fmt.Errorf("fan %s: hwmon path is missing", fanConfig.Label)
		}
		if hwmon.Index <= 0 {
			return fmt.Errorf("fan %s: invalid index, must be >= 1", fanConfig.Label)
		}
	}

	if fanConfig.File != nil && len(fanConfig.File.Path) <= 0 {
		return fmt.Errorf("fan %s: no file path provided", fanConfig.Label)
	}

	if fanConfig.Cmd != nil {
		if fanConfig.Cmd.SetPwm == nil || len(fanConfig.Cmd.SetPwm.Exec) <= 0 {
			return fmt.Errorf("fan %s: setPwm executable is missing", fanConfig.Label)
		}
		if fanConfig.Cmd.GetPwm == nil || len(fanConfig.Cmd.GetPwm.Exec) <= 0 {
			return fmt.Errorf("fan %s: getPwm executable is missing", fanConfig.Label)
		}
	}

	if fanConfig.StartPwm < 0 || fanConfig.StartPwm > 255 {
		return fmt.Errorf("fan %s: startPwm must be between 0 and 255", fanConfig.Label)
	}
	for rpm, pwm := range fanConfig.RpmToPwm {
		if rpm < 0 || pwm < 0 || pwm > 255 {
			return fmt.Errorf("fan %s: invalid rpmToPwm entry %d: %d", fanConfig.Label, rpm, pwm)
		}
	}
	if fanConfig.Interval < 0 {
		return fmt.Errorf("fan %s: interval must not be negative", fanConfig.Label)
	}
	if util.ContainsString(fanConfig.CoupledWith, fanConfig.Label) {
		return fmt.Errorf("fan %s: a fan cannot be coupled with itself", fanConfig.Label)
	}

	return nil
}

// ValidateSensor checks a single sensor definition of the device set document
func ValidateSensor(sensorConfig SensorConfig) error {
	if len(strings.TrimSpace(sensorConfig.Label)) <= 0 {
		return errors.New("sensor label is missing")
	}

	subConfigs := 0
	for _, present := range []bool{sensorConfig.HwMon != nil, sensorConfig.File != nil, sensorConfig.Cmd != nil} {
		if present {
			subConfigs++
		}
	}
	if subConfigs > 1 {
		return fmt.Errorf("sensor %s: only one sensor type can be used per sensor definition block", sensorConfig.Label)
	}
	if subConfigs <= 0 {
		return fmt.Errorf("sensor %s: sub-configuration for sensor is missing, use one of: hwmon | file | cmd", sensorConfig.Label)
	}

	if sensorConfig.HwMon != nil && sensorConfig.HwMon.Index <= 0 {
		return fmt.Errorf("sensor %s: invalid index, must be >= 1", sensorConfig.Label)
	}
	if sensorConfig.File != nil && len(sensorConfig.File.Path) <= 0 {
		return fmt.Errorf("sensor %s: no file path provided", sensorConfig.Label)
	}
	if sensorConfig.Cmd != nil && len(sensorConfig.Cmd.Exec) <= 0 {
		return fmt.Errorf("sensor %s: executable is missing", sensorConfig.Label)
	}
	if sensorConfig.Min != nil && sensorConfig.Max != nil && *sensorConfig.Min > *sensorConfig.Max {
		return fmt.Errorf("sensor %s: min is greater than max", sensorConfig.Label)
	}

	return nil
}
