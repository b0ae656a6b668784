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

package tiles

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned (wrapped) whenever a (DType, Use, Rows, Cols)
// combination has no corresponding hardware fragment layout or instruction.
// Callers must surface it as a configuration error; there is no partial or
// degraded path.
var ErrUnsupported = errors.New("unsupported tile configuration")

// FragmentLayout is the physical register layout backing one tile instance on
// one lane: SlotsPerLane slots of StorageDType.
//
// StorageDType may differ from the tile's logical DType: 16-bit multiplicand
// elements are repacked 2:1 into Int32 words (bit patterns preserved, no
// numeric conversion), and 8-bit integer multiplicands are packed 4:1.
// Accumulators always keep their logical arithmetic type, because the
// accumulation hardware operates on full-width lanes.
//
// The total fragment for a group is Lanes() x SlotsPerLane slots. For
// multiplicand fragments this may hold more units than the tile has elements:
// the hardware replicates multiplicand elements across lanes.
type FragmentLayout struct {
	StorageDType dtypes.DType
	SlotsPerLane int
}

// Memory returns the bytes one lane dedicates to the fragment.
func (l FragmentLayout) Memory() uintptr {
	return l.StorageDType.Memory() * uintptr(l.SlotsPerLane)
}

// fragmentKey indexes the fragment layout table. Layout is not part of the
// key: physical fragment layouts are identical for row- and column-major
// images, only the load/store instruction's layout-mode operand changes.
type fragmentKey struct {
	dtype      dtypes.DType
	use        Use
	rows, cols int
}

// fragmentTable maps every supported (DType, Use, Rows, Cols) to its physical
// layout. The entries are fixed by the hardware generation; variants absent
// here (e.g. half accumulators carried as int32 on the legacy uint16 path)
// are intentionally unsupported.
var fragmentTable = map[fragmentKey]FragmentLayout{
	// m16n16k16
	{dtypes.Float16, UseA, 16, 16}:           {dtypes.Int32, 8},
	{dtypes.Float16, UseB, 16, 16}:           {dtypes.Int32, 8},
	{dtypes.Float16, UseAccumulator, 16, 16}: {dtypes.Float16, 8},
	{dtypes.BFloat16, UseA, 16, 16}:          {dtypes.Int32, 4},
	{dtypes.BFloat16, UseB, 16, 16}:          {dtypes.Int32, 4},
	{dtypes.Uint16, UseA, 16, 16}:            {dtypes.Int32, 4}, // deprecated bf16-bits path
	{dtypes.Uint16, UseB, 16, 16}:            {dtypes.Int32, 4},
	{dtypes.Int8, UseA, 16, 16}:              {dtypes.Int32, 2},
	{dtypes.Int8, UseB, 16, 16}:              {dtypes.Int32, 2},
	{dtypes.Uint8, UseA, 16, 16}:             {dtypes.Int32, 2},
	{dtypes.Uint8, UseB, 16, 16}:             {dtypes.Int32, 2},
	{dtypes.Float32, UseAccumulator, 16, 16}: {dtypes.Float32, 8},
	{dtypes.Int32, UseAccumulator, 16, 16}:   {dtypes.Int32, 8},

	// m8n32k16
	{dtypes.Float16, UseA, 8, 16}:           {dtypes.Int32, 8},
	{dtypes.Float16, UseB, 16, 32}:          {dtypes.Int32, 8},
	{dtypes.Float16, UseAccumulator, 8, 32}: {dtypes.Float16, 8},
	{dtypes.BFloat16, UseA, 8, 16}:          {dtypes.Int32, 2},
	{dtypes.BFloat16, UseB, 16, 32}:         {dtypes.Int32, 8},
	{dtypes.Uint16, UseA, 8, 16}:            {dtypes.Int32, 2},
	{dtypes.Uint16, UseB, 16, 32}:           {dtypes.Int32, 8},
	{dtypes.Int8, UseA, 8, 16}:              {dtypes.Int32, 1},
	{dtypes.Int8, UseB, 16, 32}:             {dtypes.Int32, 4},
	{dtypes.Uint8, UseA, 8, 16}:             {dtypes.Int32, 1},
	{dtypes.Uint8, UseB, 16, 32}:            {dtypes.Int32, 4},
	{dtypes.Float32, UseAccumulator, 8, 32}: {dtypes.Float32, 8},
	{dtypes.Int32, UseAccumulator, 8, 32}:   {dtypes.Int32, 8},

	// m32n8k16
	{dtypes.Float16, UseA, 32, 16}:          {dtypes.Int32, 8},
	{dtypes.Float16, UseB, 16, 8}:           {dtypes.Int32, 8},
	{dtypes.Float16, UseAccumulator, 32, 8}: {dtypes.Float16, 8},
	{dtypes.BFloat16, UseA, 32, 16}:         {dtypes.Int32, 8},
	{dtypes.BFloat16, UseB, 16, 8}:          {dtypes.Int32, 2},
	{dtypes.Uint16, UseA, 32, 16}:           {dtypes.Int32, 8},
	{dtypes.Uint16, UseB, 16, 8}:            {dtypes.Int32, 2},
	{dtypes.Int8, UseA, 32, 16}:             {dtypes.Int32, 4},
	{dtypes.Int8, UseB, 16, 8}:              {dtypes.Int32, 1},
	{dtypes.Uint8, UseA, 32, 16}:            {dtypes.Int32, 4},
	{dtypes.Uint8, UseB, 16, 8}:             {dtypes.Int32, 1},
	{dtypes.Float32, UseAccumulator, 32, 8}: {dtypes.Float32, 8},
	{dtypes.Int32, UseAccumulator, 32, 8}:   {dtypes.Int32, 8},

	// m8n8k4, double precision only.
	{dtypes.Float64, UseA, 8, 4}:           {dtypes.Float64, 1},
	{dtypes.Float64, UseB, 4, 8}:           {dtypes.Float64, 1},
	{dtypes.Float64, UseAccumulator, 8, 8}: {dtypes.Float64, 2},
}

// Resolve maps a tile descriptor to its physical fragment layout.
//
// It fails fast with an error wrapping ErrUnsupported for any combination
// absent from the hardware table -- callers must not attempt a partial load.
func Resolve(t Tile) (FragmentLayout, error) {
	if !t.Layout.Ok() {
		return FragmentLayout{}, errors.Wrapf(ErrUnsupported, "tile %s: layout must be row_major or col_major", t)
	}
	layout, found := fragmentTable[fragmentKey{t.DType, t.Use, t.Rows, t.Cols}]
	if !found {
		return FragmentLayout{}, errors.Wrapf(ErrUnsupported, "tile %s has no fragment layout on this hardware generation", t)
	}
	return layout, nil
}

// SupportedTiles returns every (DType, Use, Rows, Cols) combination present in
// the fragment layout table, with Layout set to RowMajor (fragment layouts are
// layout independent). The order is unspecified.
func SupportedTiles() []Tile {
	result := make([]Tile, 0, len(fragmentTable))
	for key := range fragmentTable {
		result = append(result, Tile{DType: key.dtype, Use: key.use, Rows: key.rows, Cols: key.cols, Layout: RowMajor})
	}
	return result
}
