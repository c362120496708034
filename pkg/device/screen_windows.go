//go:build windows

package device

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// platformScreen probes the primary display via GetSystemMetrics.
type platformScreen struct{}

var (
	user32           = syscall.NewLazyDLL("user32.dll")
	getSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	smCXScreen = 0
	smCYScreen = 1
)

// ScreenDimensions returns the primary desktop dimensions on Windows.
func (platformScreen) ScreenDimensions() (int, int, error) {
	width, _, err := getSystemMetrics.Call(uintptr(smCXScreen))
	if err != windows.NOERROR {
		return 0, 0, err
	}
	height, _, err := getSystemMetrics.Call(uintptr(smCYScreen))
	if err != windows.NOERROR {
		return 0, 0, err
	}
	return int(width), int(height), nil
}
