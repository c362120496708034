//go:build !linux && !darwin && !windows

package device

import "fmt"

// platformScreen has no probe on this platform; the detector treats the
// error as the low memory tier.
type platformScreen struct{}

// ScreenDimensions always fails on unsupported platforms.
func (platformScreen) ScreenDimensions() (int, int, error) {
	return 0, 0, fmt.Errorf("no screen probe for this platform")
}
