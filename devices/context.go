package devices

import "sync"

// The driver-level calls below operate on whichever device context is
// "active". Each entry point scopes the command device as active for its
// duration and restores the previously active context on exit, error paths
// included.

var (
	activeMu      sync.Mutex
	activeDevice  Device
	activeNum     DeviceNum = -1
	activeIsValid bool
)

// scopedActive makes (d, num) the active device context and returns a restore
// function that reinstates the previous context. Callers must defer the
// restore so it also runs on error paths.
func scopedActive(d Device, num DeviceNum) (restore func()) {
	activeMu.Lock()
	prevDevice, prevNum, prevValid := activeDevice, activeNum, activeIsValid
	activeDevice, activeNum, activeIsValid = d, num, true
	activeMu.Unlock()
	return func() {
		activeMu.Lock()
		activeDevice, activeNum, activeIsValid = prevDevice, prevNum, prevValid
		activeMu.Unlock()
	}
}

// ActiveContext returns the currently active (device, device number) context,
// if any. Mostly useful for adapters and tests.
func ActiveContext() (d Device, num DeviceNum, ok bool) {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeDevice, activeNum, activeIsValid
}
