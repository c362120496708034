//go:build darwin

package device

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

// platformScreen probes the primary display via system_profiler.
type platformScreen struct{}

// resolutionPattern matches strings like "3456 x 2234" or "2880 x 1864 Retina".
var resolutionPattern = regexp.MustCompile(`(\d+)\s*x\s*(\d+)`)

type profilerOutput struct {
	Displays []struct {
		NDRVs []struct {
			Resolution string `json:"_spdisplays_pixels"`
			Main       string `json:"spdisplays_main"`
		} `json:"spdisplays_ndrvs"`
	} `json:"SPDisplaysDataType"`
}

// ScreenDimensions returns the primary desktop dimensions on macOS.
func (platformScreen) ScreenDimensions() (int, int, error) {
	out, err := exec.Command("system_profiler", "SPDisplaysDataType", "-json").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("running system_profiler: %w", err)
	}
	return parseProfilerResolution(out)
}

func parseProfilerResolution(data []byte) (int, int, error) {
	var profiler profilerOutput
	if err := json.Unmarshal(data, &profiler); err != nil {
		return 0, 0, fmt.Errorf("decoding system_profiler JSON: %w", err)
	}

	for _, gpu := range profiler.Displays {
		for _, display := range gpu.NDRVs {
			if display.Main == "spdisplays_yes" {
				return parseResolution(display.Resolution)
			}
		}
	}
	// No display flagged main: fall back to the first one listed.
	if len(profiler.Displays) > 0 && len(profiler.Displays[0].NDRVs) > 0 {
		return parseResolution(profiler.Displays[0].NDRVs[0].Resolution)
	}
	return 0, 0, fmt.Errorf("no displays in system_profiler output")
}

func parseResolution(s string) (int, int, error) {
	matches := resolutionPattern.FindStringSubmatch(s)
	if len(matches) < 3 {
		return 0, 0, fmt.Errorf("unparseable resolution %q", s)
	}
	width, errW := strconv.Atoi(matches[1])
	height, errH := strconv.Atoi(matches[2])
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("converting resolution %q: %v %v", s, errW, errH)
	}
	return width, height, nil
}
