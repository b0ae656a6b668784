/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package tiles defines Tile, the compile-time descriptor of a sub-group ("warp")
// matrix tile, and resolves it to the physical register-fragment layout used by
// tensor-core hardware.
//
// A Tile describes a small sub-matrix distributed across the lanes of one
// hardware execution group: its element DType, its Use in a multiply-accumulate
// (A, B or Accumulator), its dimensions and the row-/column-major Layout of its
// image in linear memory.
//
// Only a finite, hardware-defined set of (DType, Use, Rows, Cols) combinations
// is valid -- see Resolve and the table in registry.go. Anything outside that
// set fails with ErrUnsupported; there is no generic fallback at the hardware
// level for this family of instructions.
//
// ## Glossary
//
//   - Fragment: the per-lane register slots backing one tile instance. See Fragment.
//   - Repacking: 16-bit multiplied elements (Float16, BFloat16) are stored packed
//     in pairs inside 32-bit words, matching the granularity of the register file
//     consumed by the multiply-accumulate unit. Accumulators are never repacked.
//   - Layout id / layout pair id: the small integers hardware instructions take
//     as their layout-mode operand. See Layout.ID and LayoutPairID.
package tiles

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Use is the role a tile plays in a multiply-accumulate: the A or B multiplicand,
// or the C/D accumulator.
type Use int

const (
	// UseA is the left-hand side (M x K) multiplicand.
	UseA Use = iota

	// UseB is the right-hand side (K x N) multiplicand.
	UseB

	// UseAccumulator is the (M x N) accumulator, both the C input and D output of
	// a multiply-accumulate.
	UseAccumulator
)

// String implements fmt.Stringer.
func (u Use) String() string {
	switch u {
	case UseA:
		return "a"
	case UseB:
		return "b"
	case UseAccumulator:
		return "accumulator"
	}
	return fmt.Sprintf("Use(%d)", int(u))
}

// Layout is the element ordering of a tile's image in linear memory.
type Layout int

const (
	// RowMajor: element (r, c) lives at base[r*stride+c].
	RowMajor Layout = iota

	// ColMajor: element (r, c) lives at base[c*stride+r].
	ColMajor
)

// String implements fmt.Stringer.
func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row_major"
	case ColMajor:
		return "col_major"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Ok reports whether l is one of the two layouts load/store/mma instructions accept.
func (l Layout) Ok() bool {
	return l == RowMajor || l == ColMajor
}

// ID returns the layout-mode operand value hardware load/store instructions
// take: RowMajor=0, ColMajor=1. This encoding indexes directly into the
// instruction's layout-mode operand and must not change.
func (l Layout) ID() int {
	return int(l)
}

// LayoutPairID returns the layout-mode operand of a multiply-accumulate
// instruction for the (A, B) layout pair: 2*ID(a) + ID(b), so
// (row,row)=0, (row,col)=1, (col,row)=2, (col,col)=3.
func LayoutPairID(a, b Layout) int {
	return 2*a.ID() + b.ID()
}

// Tile is the compile-time descriptor of a sub-group matrix tile. It is
// immutable and fully determines the physical fragment layout (see Resolve).
//
// All lanes of an execution group must use identical descriptors: these are
// collective operations, and divergent descriptors are undefined behavior at
// the hardware level.
type Tile struct {
	// DType is the logical element type. The storage type of the fragment may
	// differ, see FragmentLayout.
	DType dtypes.DType

	// Use of the tile in a multiply-accumulate.
	Use Use

	// Rows and Cols of the tile. Only the hardware-defined shapes resolve, see
	// package isa for the (M, K, N) triples they derive from.
	Rows, Cols int

	// Layout of the tile image in linear memory.
	Layout Layout
}

// Make returns a Tile descriptor with the given fields. It panics if rows/cols
// are not positive or the layout is invalid; it does not check the descriptor
// against the hardware table -- that is Resolve's job, which returns an error.
func Make(dtype dtypes.DType, use Use, rows, cols int, layout Layout) Tile {
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("tiles.Make(%s, %s, %d, %d, %s): rows and cols must be positive", dtype, use, rows, cols, layout)
	}
	if !layout.Ok() {
		exceptions.Panicf("tiles.Make(%s, %s, %d, %d, %s): invalid layout", dtype, use, rows, cols, layout)
	}
	return Tile{DType: dtype, Use: use, Rows: rows, Cols: cols, Layout: layout}
}

// Size returns the number of logical elements in the tile.
func (t Tile) Size() int { return t.Rows * t.Cols }

// String implements fmt.Stringer, pretty-prints the descriptor.
func (t Tile) String() string {
	return fmt.Sprintf("(%s, %s)[%dx%d, %s]", t.DType, t.Use, t.Rows, t.Cols, t.Layout)
}
