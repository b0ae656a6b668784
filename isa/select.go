package isa

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/pkg/errors"
)

// ErrTypeMismatch is returned when the A and B multiplicand element types of a
// multiply-accumulate differ. The hardware requires them to be equal; they are
// never silently upcast.
var ErrTypeMismatch = errors.New("multiplicand element types must match")

// Instruction is a selected hardware instruction together with the value of
// its layout-mode operand. It is computed at the call site and never stored.
type Instruction struct {
	Op    Opcode
	Shape Shape

	// LayoutMode is the instruction's layout-mode operand: the layout id
	// (tiles.Layout.ID) for loads and stores, the layout pair id
	// (tiles.LayoutPairID) for multiply-accumulates.
	LayoutMode int
}

// SelectLoad returns the tile-load instruction for the descriptor, or an error
// wrapping tiles.ErrUnsupported if the hardware has none.
func SelectLoad(t tiles.Tile) (Instruction, error) {
	if !t.Layout.Ok() {
		return Instruction{}, errors.Wrapf(tiles.ErrUnsupported, "load of tile %s: layout must be row_major or col_major", t)
	}
	entry, found := loadOps[loadKey{t.DType, t.Use, t.Rows, t.Cols}]
	if !found {
		return Instruction{}, errors.Wrapf(tiles.ErrUnsupported, "no load instruction for tile %s", t)
	}
	return Instruction{Op: entry.op, Shape: entry.shape, LayoutMode: t.Layout.ID()}, nil
}

// SelectStore returns the accumulator-store instruction for the given
// accumulate dtype and shape. Only accumulator tiles can be stored.
func SelectStore(dtype dtypes.DType, rows, cols int, layout tiles.Layout) (Instruction, error) {
	if !layout.Ok() {
		return Instruction{}, errors.Wrapf(tiles.ErrUnsupported, "store of (%s)[%dx%d]: layout must be row_major or col_major", dtype, rows, cols)
	}
	entry, found := storeOps[storeKey{dtype, rows, cols}]
	if !found {
		return Instruction{}, errors.Wrapf(tiles.ErrUnsupported, "no store instruction for accumulator (%s)[%dx%d]", dtype, rows, cols)
	}
	return Instruction{Op: entry.op, Shape: entry.shape, LayoutMode: layout.ID()}, nil
}

// SelectMAD returns the multiply-accumulate instruction for multiplicands of
// type operand (A and B must match, see ErrTypeMismatch -- checked by the
// caller that holds both tiles), accumulate type accum and shape (m, k, n),
// with the layout pair of the A and B tiles encoded as the instruction's
// layout-mode operand.
func SelectMAD(operand, accum dtypes.DType, m, k, n int, layoutA, layoutB tiles.Layout) (Instruction, error) {
	if !layoutA.Ok() || !layoutB.Ok() {
		return Instruction{}, errors.Wrapf(tiles.ErrUnsupported, "mma %s*%s m%dn%dk%d: layouts must be row_major or col_major", operand, accum, m, n, k)
	}
	shape := Shape{M: m, N: n, K: k}
	op, found := madOps[madKey{operand: operand, accum: accum, shape: shape}]
	if !found {
		return Instruction{}, errors.Wrapf(tiles.ErrUnsupported, "no multiply-accumulate instruction for operands %s, accumulator %s, shape %s", operand, accum, shape)
	}
	return Instruction{Op: op, Shape: shape, LayoutMode: tiles.LayoutPairID(layoutA, layoutB)}, nil
}
