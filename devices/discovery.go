package devices

import (
	"fmt"
	"strings"
)

// listAdbTargets runs `adb devices` and returns one AdbTarget per serial in
// the "device" state. Unauthorized and offline entries are skipped.
func listAdbTargets(adb *Adb) ([]Target, error) {
	out, err := adb.Run("devices")
	if err != nil {
		return nil, fmt.Errorf("failed to run 'adb devices': %w", err)
	}

	var targets []Target
	for _, serial := range parseDevicesOutput(string(out)) {
		targets = append(targets, NewAdbTarget(adb, serial, targetModel(adb, serial)))
	}
	return targets, nil
}

// parseDevicesOutput extracts serials in the "device" state from `adb
// devices` output. The first line is the banner.
func parseDevicesOutput(output string) []string {
	var serials []string
	lines := strings.Split(output, "\n")
	for i := 1; i < len(lines); i++ {
		parts := strings.Fields(strings.TrimSpace(lines[i]))
		if len(parts) == 2 && parts[1] == "device" {
			serials = append(serials, parts[0])
		}
	}
	return serials
}

// targetModel reads the product model for display purposes; the serial is
// the fallback name.
func targetModel(adb *Adb, serial string) string {
	out, err := adb.RunDevice(serial, "shell", "getprop", "ro.product.model")
	if err != nil || len(out) == 0 {
		return serial
	}
	model := strings.TrimSpace(string(out))
	if model == "" {
		return serial
	}
	return model
}
