// Package warp is the public joint-matrix API: cooperative tile loads, stores
// and multiply-accumulates executed by one SIMT group ("warp"/"sub-group") of
// a tensor-core capable device.
//
// All operations are collective: every lane of the group takes part, with
// uniform arguments across lanes, and the caller provides any memory fence
// required around loads and stores. There is no software fallback -- calling
// into this package without a tensor-core capable group fails immediately with
// devices.ErrHostExecution.
package warp

import (
	"math"

	"github.com/gomlx/tensorcores/devices"
	"github.com/gomlx/tensorcores/isa"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/pkg/errors"
)

// Matrix is one joint-matrix tile instance: a descriptor plus the fragment
// registers backing it on the group it was created for. It is owned by the
// creating group and must not be shared across groups.
type Matrix struct {
	tile tiles.Tile
	frag *tiles.Fragment
}

// Tile returns the matrix descriptor.
func (m *Matrix) Tile() tiles.Tile { return m.tile }

// Fragment returns the physical fragment backing the matrix. It aliases the
// matrix storage.
func (m *Matrix) Fragment() *tiles.Fragment { return m.frag }

// checkGroup is the single capability boundary of the package: every entry
// point calls it before selecting or issuing anything.
func checkGroup(g devices.Group) error {
	if g == nil {
		return errors.Wrapf(devices.ErrHostExecution, "no execution group")
	}
	if !g.Device().Capabilities().TensorCores {
		return errors.Wrapf(devices.ErrHostExecution, "device %q has no tensor cores", g.Device().Name())
	}
	return nil
}

// NewMatrix allocates the fragment for one tile instance on the group.
//
// It fails with tiles.ErrUnsupported if the descriptor is not in the hardware
// table or the device does not accept its element type, and with
// devices.ErrHostExecution if the group cannot execute tensor-core
// instructions at all.
func NewMatrix(g devices.Group, t tiles.Tile) (*Matrix, error) {
	if err := checkGroup(g); err != nil {
		return nil, err
	}
	if !g.Device().Capabilities().DTypes[t.DType] {
		return nil, errors.Wrapf(tiles.ErrUnsupported, "device %q does not support %s tiles", g.Device().Name(), t.DType)
	}
	frag, err := tiles.NewFragment(t, g.Lanes())
	if err != nil {
		return nil, err
	}
	return &Matrix{tile: t, frag: frag}, nil
}

// Load issues the cooperative tile-load: the group reads the tile from a
// linear image (src, a slice of the tile's element type; stride in logical
// elements, interpreted per the tile's layout) into m's fragment registers.
func Load(g devices.Group, m *Matrix, src any, stride int) error {
	if err := checkGroup(g); err != nil {
		return err
	}
	instruction, err := isa.SelectLoad(m.tile)
	if err != nil {
		return err
	}
	return g.ExecLoad(instruction, m.frag, src, stride)
}

// Store issues the cooperative accumulator-store: the group writes m's
// fragment back to a linear image (dst, a slice of the tile's element type;
// stride in logical elements). Only accumulator tiles can be stored.
func Store(g devices.Group, m *Matrix, dst any, stride int) error {
	if err := checkGroup(g); err != nil {
		return err
	}
	if m.tile.Use != tiles.UseAccumulator {
		return errors.Wrapf(tiles.ErrUnsupported, "only accumulator tiles can be stored, got %s", m.tile)
	}
	instruction, err := isa.SelectStore(m.tile.DType, m.tile.Rows, m.tile.Cols, m.tile.Layout)
	if err != nil {
		return err
	}
	return g.ExecStore(instruction, m.frag, dst, stride)
}

// Fill broadcasts value (converted once to the tile's element type) to every
// element of the matrix.
func Fill(g devices.Group, m *Matrix, value float64) error {
	if err := checkGroup(g); err != nil {
		return err
	}
	return g.ExecFill(m.frag, value)
}

// MAD issues the cooperative multiply-accumulate d = a*b + c and returns d as
// a freshly allocated matrix with c's descriptor. c is never mutated.
//
// The multiplicand element types of a and b must match (the hardware never
// upcasts): a mismatch fails with isa.ErrTypeMismatch before anything is
// issued to the device, as does any shape or use inconsistency.
func MAD(g devices.Group, a, b, c *Matrix) (*Matrix, error) {
	if err := checkGroup(g); err != nil {
		return nil, err
	}
	ta, tb, tc := a.tile, b.tile, c.tile
	if ta.Use != tiles.UseA || tb.Use != tiles.UseB || tc.Use != tiles.UseAccumulator {
		return nil, errors.Errorf("MAD operand uses must be (a, b, accumulator), got (%s, %s, %s)", ta.Use, tb.Use, tc.Use)
	}
	if ta.DType != tb.DType {
		return nil, errors.Wrapf(isa.ErrTypeMismatch, "a is %s, b is %s", ta.DType, tb.DType)
	}
	m, k, n := ta.Rows, ta.Cols, tb.Cols
	if tb.Rows != k || tc.Rows != m || tc.Cols != n {
		return nil, errors.Errorf("MAD tile shapes do not chain: a=%s, b=%s, c=%s", ta, tb, tc)
	}
	instruction, err := isa.SelectMAD(ta.DType, tc.DType, m, k, n, ta.Layout, tb.Layout)
	if err != nil {
		return nil, err
	}
	d, err := NewMatrix(g, tc)
	if err != nil {
		return nil, err
	}
	if err = g.ExecMAD(instruction, d.frag, a.frag, b.frag, c.frag); err != nil {
		return nil, err
	}
	return d, nil
}

// RoundToTF32 rounds a float32 to the tf32 value the tensor cores would use
// as a multiplicand: round-to-nearest into the 10 explicit mantissa bits,
// then truncate the rest.
func RoundToTF32(x float32) float32 {
	bits := math.Float32bits(x)
	bits += 0x1000
	bits &= 0xFFFFE000
	return math.Float32frombits(bits)
}
