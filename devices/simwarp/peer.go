package simwarp

import (
	"sync"

	"github.com/gomlx/tensorcores/devices"
	"github.com/pkg/errors"
)

// peerTable is the simulated driver state for peer-to-peer access: which
// (device, peer) links are currently enabled. Links are directional, matching
// the driver semantics.
type peerTable struct {
	mu         sync.Mutex
	numDevices int
	enabled    map[[2]devices.DeviceNum]bool
}

func newPeerTable(numDevices int) *peerTable {
	return &peerTable{
		numDevices: numDevices,
		enabled:    make(map[[2]devices.DeviceNum]bool),
	}
}

func (p *peerTable) numEnabled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.enabled)
}

// checkPair validates a (device, peer) pair the way the driver does: both in
// range and distinct.
func (p *peerTable) checkPair(device, peer devices.DeviceNum) error {
	if device < 0 || int(device) >= p.numDevices || peer < 0 || int(peer) >= p.numDevices {
		return errors.Errorf("device pair (%d, %d) out of range [0, %d)", device, peer, p.numDevices)
	}
	if device == peer {
		return errors.Errorf("device %d cannot peer with itself", device)
	}
	return nil
}

// DriverEnablePeerAccess implements devices.PeerAccessor. Enabling a link that
// is already enabled is a driver error, matching real driver semantics.
func (d *Device) DriverEnablePeerAccess(device, peer devices.DeviceNum) error {
	if err := d.requireActive(device); err != nil {
		return err
	}
	if err := d.peers.checkPair(device, peer); err != nil {
		return err
	}
	d.peers.mu.Lock()
	defer d.peers.mu.Unlock()
	key := [2]devices.DeviceNum{device, peer}
	if d.peers.enabled[key] {
		return errors.Errorf("peer access %d->%d already enabled", device, peer)
	}
	d.peers.enabled[key] = true
	return nil
}

// DriverDisablePeerAccess implements devices.PeerAccessor.
func (d *Device) DriverDisablePeerAccess(device, peer devices.DeviceNum) error {
	if err := d.requireActive(device); err != nil {
		return err
	}
	if err := d.peers.checkPair(device, peer); err != nil {
		return err
	}
	d.peers.mu.Lock()
	defer d.peers.mu.Unlock()
	key := [2]devices.DeviceNum{device, peer}
	if !d.peers.enabled[key] {
		return errors.Errorf("peer access %d->%d is not enabled", device, peer)
	}
	delete(d.peers.enabled, key)
	return nil
}

// DriverPeerAttribute implements devices.PeerAccessor. Simulated devices all
// share host memory: direct access is always supported, native peer atomics
// are not.
func (d *Device) DriverPeerAttribute(device, peer devices.DeviceNum, attribute devices.PeerAttribute) (int, error) {
	if err := d.requireActive(device); err != nil {
		return 0, err
	}
	if err := d.peers.checkPair(device, peer); err != nil {
		return 0, err
	}
	switch attribute {
	case devices.PeerAccessSupported:
		return 1, nil
	case devices.PeerAtomicsSupported:
		return 0, nil
	}
	return 0, errors.Errorf("unknown peer attribute %s", attribute)
}

// requireActive enforces the driver's context discipline: the command device
// must be the active context when a peer call arrives (package devices scopes
// it around every entry point).
func (d *Device) requireActive(device devices.DeviceNum) error {
	activeDevice, activeNum, ok := devices.ActiveContext()
	if !ok || activeDevice != devices.Device(d) || activeNum != device {
		return errors.Errorf("peer driver call for device %d outside its active context", device)
	}
	return nil
}
