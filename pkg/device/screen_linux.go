//go:build linux

package device

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// platformScreen probes the primary display via xdpyinfo.
type platformScreen struct{}

// ScreenDimensions returns the desktop dimensions on Linux.
func (platformScreen) ScreenDimensions() (int, int, error) {
	out, err := exec.Command("xdpyinfo").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("running xdpyinfo: %w", err)
	}
	return parseXdpyinfo(string(out))
}

// parseXdpyinfo extracts the resolution from a line like
// "dimensions:    1920x1080 pixels (508x285 millimeters)".
func parseXdpyinfo(out string) (int, int, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "dimensions:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		parts := strings.Split(fields[1], "x")
		if len(parts) != 2 {
			continue
		}
		width, errW := strconv.Atoi(parts[0])
		height, errH := strconv.Atoi(parts[1])
		if errW != nil || errH != nil {
			continue
		}
		return width, height, nil
	}
	return 0, 0, fmt.Errorf("no dimensions line in xdpyinfo output")
}
