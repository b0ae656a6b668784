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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutID(t *testing.T) {
	// The ids are instruction operand values, the hardware fixes them.
	assert.Equal(t, 0, RowMajor.ID())
	assert.Equal(t, 1, ColMajor.ID())
}

func TestLayoutPairID(t *testing.T) {
	// Exhaustive: 2*id(a) + id(b).
	assert.Equal(t, 0, LayoutPairID(RowMajor, RowMajor))
	assert.Equal(t, 1, LayoutPairID(RowMajor, ColMajor))
	assert.Equal(t, 2, LayoutPairID(ColMajor, RowMajor))
	assert.Equal(t, 3, LayoutPairID(ColMajor, ColMajor))
}

func TestMake(t *testing.T) {
	tile := Make(dtypes.Float16, UseA, 16, 16, RowMajor)
	assert.Equal(t, "(Float16, a)[16x16, row_major]", tile.String())
	assert.Equal(t, 256, tile.Size())

	require.Panics(t, func() { Make(dtypes.Float16, UseA, 0, 16, RowMajor) })
	require.Panics(t, func() { Make(dtypes.Float16, UseA, 16, -1, RowMajor) })
	require.Panics(t, func() { Make(dtypes.Float16, UseA, 16, 16, Layout(7)) })
}

func TestUseString(t *testing.T) {
	assert.Equal(t, "a", UseA.String())
	assert.Equal(t, "b", UseB.String())
	assert.Equal(t, "accumulator", UseAccumulator.String())
}
