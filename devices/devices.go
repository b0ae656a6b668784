// Package devices defines the interface a GPU driver adapter needs to
// implement to execute tensor-core instructions selected by package isa, plus
// a registry of adapters and the peer-to-peer (P2P) memory-access surface.
//
// Everything in this package runs on the host; the Group returned by a Device
// is a handle to one SIMT execution group ("sub-group"/warp) scheduled on the
// device. Tile operations are collective: all lanes of a group execute them in
// lockstep, and a subset of lanes calling while others diverge is undefined
// behavior at the hardware level -- a precondition of the callers, not
// something adapters defend against.
//
// To simplify error handling in construction paths, registry functions throw
// (panic) with a stack trace in case of errors, see package
// github.com/gomlx/exceptions. Execution paths return errors.
package devices

import (
	"maps"
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorcores/isa"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrHostExecution is returned when a tensor-core operation is attempted on an
// execution context that cannot run it -- there is no software emulation path
// in the public API, so the failure is immediate and non-recoverable.
var ErrHostExecution = errors.New("tensor-core operation attempted outside a capable device execution context")

// DeviceNum identifies one device of an adapter. It should be between 0 and
// Device.NumDevices.
type DeviceNum int

// Capabilities holds what a device adapter supports.
type Capabilities struct {
	// TensorCores reports whether the adapter executes the tensor-core
	// instruction family at all. Without it every tile operation fails with
	// ErrHostExecution.
	TensorCores bool

	// DTypes lists the multiplicand element types the adapter accepts.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	c2 := c
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}

// Device is the API a driver adapter needs to implement.
type Device interface {
	// Name returns the short name the adapter was registered under, e.g. "simwarp".
	Name() string

	// Description is a longer description of the adapter that can be used to pretty-print.
	Description() string

	// NumDevices returns the number of devices available through this adapter.
	NumDevices() DeviceNum

	// Capabilities of the adapter.
	Capabilities() Capabilities

	// NewGroup schedules one execution group on the given device and returns
	// its handle.
	NewGroup(num DeviceNum) (Group, error)

	// Finalize releases all associated resources immediately and makes the
	// adapter invalid.
	Finalize()
}

// Group is one SIMT execution group scheduled on a device. Its Exec methods
// issue a single hardware instruction each: they are synchronous, atomic, and
// perform no retry or partial completion -- every failure they can report is
// detected before the instruction issues.
//
// Memory passed to ExecLoad/ExecStore may alias group-visible memory; the
// group performs no synchronization beyond the issuing instruction's own
// hardware semantics, callers are responsible for any barrier around the call.
type Group interface {
	// Device the group is scheduled on.
	Device() Device

	// Lanes in the group (e.g. 32 for a warp).
	Lanes() int

	// ExecLoad issues the tile-load instruction, marshalling a linear image
	// (src, a slice of the tile's element type, with stride in logical
	// elements) into the fragment.
	ExecLoad(instruction isa.Instruction, frag *tiles.Fragment, src any, stride int) error

	// ExecStore issues the accumulator-store instruction, marshalling the
	// fragment back to a linear image.
	ExecStore(instruction isa.Instruction, frag *tiles.Fragment, dst any, stride int) error

	// ExecMAD issues the multiply-accumulate instruction: d = a*b + c.
	// d must be a freshly allocated fragment with c's descriptor; c is never
	// mutated.
	ExecMAD(instruction isa.Instruction, d, a, b, c *tiles.Fragment) error

	// ExecFill broadcasts a value to every element of the fragment.
	ExecFill(frag *tiles.Fragment, value float64) error
}

// Constructor takes a config string (optionally empty) and returns a Device adapter.
type Constructor func(config string) (Device, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register an adapter with the given name and its constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if _, found := registeredConstructors[name]; found {
		exceptions.Panicf("devices.Register(%q): adapter registered twice", name)
	}
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
	klog.V(1).Infof("registered device adapter %q", name)
}

// DefaultConfig is the adapter configuration to use if none is given.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// TENSORCORES_DEVICE is the environment variable with the default adapter
// configuration. The format is "<adapter_name>:<adapter_configuration>".
const TENSORCORES_DEVICE = "TENSORCORES_DEVICE"

// New returns a new Device adapter.
//
// The default is:
//
// 1. The environment TENSORCORES_DEVICE is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered adapter is used with an empty configuration.
func New() (Device, error) {
	if config, found := os.LookupEnv(TENSORCORES_DEVICE); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configuration string formatted as
// "<adapter_name>:<adapter_configuration>". The adapter configuration part is
// adapter specific. An empty name selects the first registered adapter.
func NewWithConfig(config string) (Device, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.Errorf(`no registered device adapters -- maybe import the simulated one with import _ "github.com/gomlx/tensorcores/devices/simwarp"?`)
	}
	name := config
	adapterConfig := ""
	if idx := strings.Index(config, ":"); idx != -1 {
		name = config[:idx]
		adapterConfig = config[idx+1:]
	}
	if name == "" {
		name = firstRegistered
	}
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Errorf("can't find device adapter %q for configuration %q", name, config)
	}
	return constructor(adapterConfig)
}
