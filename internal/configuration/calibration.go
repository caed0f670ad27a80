package configuration

type CalibrationConfig struct {
	// MarginPwm is added to the lowest drive level that started the fan
	MarginPwm int `json:"marginPwm"`
	// StabilisedThreshold is the max relative speed change between polls of a settled fan
	StabilisedThreshold float64 `json:"stabilisedThreshold"`
	// MaxPolls limits how often a single drive level is polled before giving up on it
	MaxPolls int `json:"maxPolls"`
	// MaxClaimPolls limits how often the initial drive level write is verified
	MaxClaimPolls int `json:"maxClaimPolls"`
}
