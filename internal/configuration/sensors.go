package configuration

// SensorConfig is the definition of a single temperature sensor within the device set document
type SensorConfig struct {
	Label  string `json:"label" yaml:"label"`
	Ignore bool   `json:"ignore" yaml:"ignore"`
	// Min and Max define the valid temperature range in °C, if known
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`

	HwMon *HwMonSensorConfig `json:"hwmon,omitempty" yaml:"hwmon,omitempty"`
	File  *FileSensorConfig  `json:"file,omitempty" yaml:"file,omitempty"`
	Cmd   *ExecConfig        `json:"cmd,omitempty" yaml:"cmd,omitempty"`
}

type HwMonSensorConfig struct {
	Chip  string `json:"chip,omitempty" yaml:"chip,omitempty"`
	Path  string `json:"path" yaml:"path"`
	Index int    `json:"index" yaml:"index"`
}

type FileSensorConfig struct {
	Path string `json:"path" yaml:"path"`
}
