// Package simwarp implements a simulated warp device: a pure-Go devices.Device
// adapter that executes the tensor-core instruction family with reference
// semantics.
//
// It exists for tests and for development on hosts without tensor-core
// hardware. It is lane-accurate in the contract that matters to callers --
// fragment storage types, slot counts, the 2:1 repacking of 16-bit
// multiplicands and the layout-mode operands all follow the hardware tables --
// but it executes a whole group's collective instruction in one call instead
// of 32 SIMT lanes.
//
// Import it for the side effect of registering itself:
//
//	import _ "github.com/gomlx/tensorcores/devices/simwarp"
package simwarp

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorcores/devices"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
	"k8s.io/klog/v2"
)

// Name of the adapter in the devices registry.
const Name = "simwarp"

// WarpLanes is the number of lanes of a simulated execution group.
const WarpLanes = 32

// defaultNumDevices when the configuration string doesn't say otherwise.
// Two devices allow exercising the peer-access surface out of the box.
const defaultNumDevices = 2

// simulatedMemory reported per device. Purely cosmetic.
const simulatedMemory = 1 << 30

func init() {
	devices.Register(Name, func(config string) (devices.Device, error) {
		return New(config)
	})
}

// Device is the simulated adapter. It implements devices.Device and
// devices.PeerAccessor.
type Device struct {
	uuids []uuid.UUID
	caps  devices.Capabilities
	peers *peerTable
	valid bool
}

// Compile-time checks:
var (
	_ devices.Device       = (*Device)(nil)
	_ devices.PeerAccessor = (*Device)(nil)
)

// New creates a simulated adapter. The configuration string is either empty or
// the number of simulated devices, e.g. "4".
func New(config string) (*Device, error) {
	numDevices := defaultNumDevices
	if config != "" {
		var err error
		numDevices, err = strconv.Atoi(config)
		if err != nil || numDevices <= 0 {
			return nil, errors.Errorf("simwarp configuration must be a positive number of devices, got %q", config)
		}
	}
	d := &Device{
		uuids: make([]uuid.UUID, numDevices),
		caps:  capabilities.Clone(),
		peers: newPeerTable(numDevices),
		valid: true,
	}
	for ii := range d.uuids {
		d.uuids[ii] = uuid.New()
	}
	klog.V(1).Infof("simwarp: created adapter with %d simulated devices", numDevices)
	return d, nil
}

// capabilities of the simulated adapter: every dtype of the hardware tables.
var capabilities = devices.Capabilities{
	TensorCores: true,
	DTypes: map[dtypes.DType]bool{
		dtypes.Float16:  true,
		dtypes.BFloat16: true,
		dtypes.Uint16:   true, // deprecated bf16-bits path
		dtypes.Int8:     true,
		dtypes.Uint8:    true,
		dtypes.Int32:    true,
		dtypes.Float32:  true,
		dtypes.Float64:  true,
	},
}

// Name returns the registry name of the adapter.
func (d *Device) Name() string { return Name }

// Description pretty-prints the adapter, including the host SIMD features the
// simulation runs on.
func (d *Device) Description() string {
	return fmt.Sprintf("%s - %d simulated warp device(s), %d lanes, %s each (host: avx2=%v avx512=%v neon=%v)",
		Name, len(d.uuids), WarpLanes, humanize.IBytes(simulatedMemory),
		cpu.X86.HasAVX2, cpu.X86.HasAVX512F, cpu.ARM64.HasASIMD)
}

// NumDevices returns the number of simulated devices.
func (d *Device) NumDevices() devices.DeviceNum {
	return devices.DeviceNum(len(d.uuids))
}

// Capabilities returns a copy of the adapter capabilities.
func (d *Device) Capabilities() devices.Capabilities {
	return d.caps.Clone()
}

// UUID returns the identity of one simulated device.
func (d *Device) UUID(num devices.DeviceNum) (uuid.UUID, error) {
	if err := d.checkDeviceNum(num); err != nil {
		return uuid.UUID{}, err
	}
	return d.uuids[num], nil
}

// NewGroup schedules one execution group on the given device.
func (d *Device) NewGroup(num devices.DeviceNum) (devices.Group, error) {
	if !d.valid {
		return nil, errors.Errorf("simwarp adapter already finalized")
	}
	if err := d.checkDeviceNum(num); err != nil {
		return nil, err
	}
	return &group{device: d, num: num}, nil
}

// Finalize invalidates the adapter. Peer links still enabled are dropped with
// a warning: real drivers require balanced enable/disable pairs.
func (d *Device) Finalize() {
	if !d.valid {
		return
	}
	if open := d.peers.numEnabled(); open > 0 {
		klog.Warningf("simwarp: finalizing with %d peer-access link(s) still enabled", open)
	}
	d.valid = false
}

func (d *Device) checkDeviceNum(num devices.DeviceNum) error {
	if num < 0 || int(num) >= len(d.uuids) {
		return errors.Errorf("device number %d out of range [0, %d)", num, len(d.uuids))
	}
	return nil
}
