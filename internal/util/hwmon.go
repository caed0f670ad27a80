package util

import (
	"os"
	"path/filepath"
	"strings"
)

// GetDeviceName read the name of a device
func GetDeviceName(devicePath string) string {
	content, _ := os.ReadFile(filepath.Join(devicePath, "name"))
	return strings.TrimSpace(string(content))
}

// GetLabel read the label of a in/output of a device
func GetLabel(devicePath string, input string) string {
	labelPath := strings.TrimSuffix(filepath.Join(devicePath, input), "input") + "label"

	content, _ := os.ReadFile(labelPath)
	label := strings.TrimSpace(string(content))
	if len(label) <= 0 {
		label = strings.TrimSuffix(input, "_input")
	}
	return label
}

// IsDellSmmDevice returns true if the hwmon device at the given path is driven by dell-smm-hwmon,
// which only offers a single, shared manual control switch for all of its fans
func IsDellSmmDevice(devicePath string) bool {
	name := GetDeviceName(devicePath)
	return name == "dell_smm" || name == "i8k"
}
