package devices

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPeerAccess wraps driver failures of the peer-to-peer access calls. They
// are propagated to the caller as-is and never retried automatically.
var ErrPeerAccess = errors.New("peer access driver call failed")

// PeerAttribute selects which property PeerAccessInfo queries about a
// (device, peer device) pair.
type PeerAttribute int

const (
	// PeerAccessSupported queries whether the device can directly access the
	// peer device's memory (1) or not (0).
	PeerAccessSupported PeerAttribute = iota

	// PeerAtomicsSupported queries whether native atomic operations over the
	// peer link are supported (1) or not (0).
	PeerAtomicsSupported
)

// String implements fmt.Stringer.
func (a PeerAttribute) String() string {
	switch a {
	case PeerAccessSupported:
		return "peer_access_supported"
	case PeerAtomicsSupported:
		return "peer_atomics_supported"
	}
	return fmt.Sprintf("PeerAttribute(%d)", int(a))
}

// PeerAccessor is the driver surface of adapters whose devices support direct
// peer-to-peer unified-shared-memory access. The methods are raw driver calls:
// they assume the command device is the active context (see scopedActive) and
// return driver errors untranslated.
type PeerAccessor interface {
	DriverEnablePeerAccess(device, peer DeviceNum) error
	DriverDisablePeerAccess(device, peer DeviceNum) error
	DriverPeerAttribute(device, peer DeviceNum, attribute PeerAttribute) (int, error)
}

// peerAccessor asserts that d supports the P2P driver surface.
func peerAccessor(d Device) (PeerAccessor, error) {
	accessor, ok := d.(PeerAccessor)
	if !ok {
		return nil, errors.Wrapf(ErrPeerAccess, "device adapter %q does not expose peer access", d.Name())
	}
	return accessor, nil
}

// EnablePeerAccess makes the peer device's memory directly accessible from
// device. The command device is scoped active for the duration of the call and
// the previous context restored on exit, also on error.
func EnablePeerAccess(d Device, device, peer DeviceNum) error {
	accessor, err := peerAccessor(d)
	if err != nil {
		return err
	}
	defer scopedActive(d, device)()
	if err := accessor.DriverEnablePeerAccess(device, peer); err != nil {
		return errors.Wrapf(ErrPeerAccess, "enabling peer access %d->%d on %q: %v", device, peer, d.Name(), err)
	}
	return nil
}

// DisablePeerAccess revokes direct access to the peer device's memory from
// device.
func DisablePeerAccess(d Device, device, peer DeviceNum) error {
	accessor, err := peerAccessor(d)
	if err != nil {
		return err
	}
	defer scopedActive(d, device)()
	if err := accessor.DriverDisablePeerAccess(device, peer); err != nil {
		return errors.Wrapf(ErrPeerAccess, "disabling peer access %d->%d on %q: %v", device, peer, d.Name(), err)
	}
	return nil
}

// PeerAccessInfo queries one attribute of the (device, peer) pair. An
// attribute unknown to this package is an invalid-enumeration error, detected
// before any driver call.
func PeerAccessInfo(d Device, device, peer DeviceNum, attribute PeerAttribute) (int, error) {
	if attribute != PeerAccessSupported && attribute != PeerAtomicsSupported {
		return 0, errors.Errorf("invalid peer attribute %s", attribute)
	}
	accessor, err := peerAccessor(d)
	if err != nil {
		return 0, err
	}
	defer scopedActive(d, device)()
	value, err := accessor.DriverPeerAttribute(device, peer, attribute)
	if err != nil {
		return 0, errors.Wrapf(ErrPeerAccess, "querying %s for %d->%d on %q: %v", attribute, device, peer, d.Name(), err)
	}
	return value, nil
}
