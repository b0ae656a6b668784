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
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSupported(t *testing.T) {
	supported := SupportedTiles()
	require.Len(t, supported, len(fragmentTable))
	for _, tile := range supported {
		layout, err := Resolve(tile)
		require.NoErrorf(t, err, "tile %s is in the table", tile)
		assert.Greater(t, layout.SlotsPerLane, 0)

		// Fragment layouts are layout independent.
		tile.Layout = ColMajor
		colLayout, err := Resolve(tile)
		require.NoError(t, err)
		assert.Equal(t, layout, colLayout)
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, tile := range []Tile{
		// Wrong dimensions for the dtype/use.
		{DType: dtypes.Float16, Use: UseA, Rows: 16, Cols: 8, Layout: RowMajor},
		// f64 only exists on m8n8k4.
		{DType: dtypes.Float64, Use: UseA, Rows: 16, Cols: 16, Layout: RowMajor},
		// bf16 accumulators don't exist.
		{DType: dtypes.BFloat16, Use: UseAccumulator, Rows: 16, Cols: 16, Layout: RowMajor},
		// 8-bit accumulators don't exist.
		{DType: dtypes.Int8, Use: UseAccumulator, Rows: 16, Cols: 16, Layout: RowMajor},
		// The legacy half-as-int32 accumulator path stays unsupported.
		{DType: dtypes.Uint16, Use: UseAccumulator, Rows: 16, Cols: 16, Layout: RowMajor},
		// Invalid layout.
		{DType: dtypes.Float16, Use: UseA, Rows: 16, Cols: 16, Layout: Layout(3)},
	} {
		_, err := Resolve(tile)
		require.Errorf(t, err, "tile %s should not resolve", tile)
		assert.Truef(t, errors.Is(err, ErrUnsupported), "want ErrUnsupported, got %v", err)
	}
}

// TestRepackInvariant checks that 16-bit multiplicand fragments are packed 2:1
// into 32-bit words (and 8-bit ones 4:1), with accumulators never repacked.
func TestRepackInvariant(t *testing.T) {
	for key, layout := range fragmentTable {
		elemSize := key.dtype.Memory()
		if key.use == UseAccumulator {
			assert.Equalf(t, key.dtype, layout.StorageDType, "accumulator %s/%dx%d must not be repacked", key.dtype, key.rows, key.cols)
			continue
		}
		if elemSize >= 4 {
			assert.Equal(t, key.dtype, layout.StorageDType)
			continue
		}
		assert.Equalf(t, dtypes.Int32, layout.StorageDType, "multiplicand %s/%s/%dx%d", key.dtype, key.use, key.rows, key.cols)
		// A 32-lane group's fragment holds a whole number of tile copies
		// (>= 1): the hardware replicates multiplicand elements, it never
		// truncates or pads them.
		const lanes = 32
		perWord := int(4 / elemSize)
		groupUnits := lanes * layout.SlotsPerLane * perWord
		numElements := key.rows * key.cols
		require.GreaterOrEqualf(t, groupUnits, numElements, "%s/%s/%dx%d", key.dtype, key.use, key.rows, key.cols)
		assert.Zerof(t, groupUnits%numElements, "%s/%s/%dx%d: %d units for %d elements",
			key.dtype, key.use, key.rows, key.cols, groupUnits, numElements)
	}
}

func TestFragmentLayoutMemory(t *testing.T) {
	layout, err := Resolve(Make(dtypes.Float16, UseA, 16, 16, RowMajor))
	require.NoError(t, err)
	assert.Equal(t, dtypes.Int32, layout.StorageDType)
	assert.Equal(t, 8, layout.SlotsPerLane)
	assert.Equal(t, uintptr(32), layout.Memory())
}
