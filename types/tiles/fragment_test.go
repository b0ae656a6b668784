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
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

const testLanes = 32

// TestLoadStoreRoundTrip checks store(load(X)) == X bit-for-bit, for repacked
// and non-repacked element types, row- and column-major.
func TestLoadStoreRoundTrip(t *testing.T) {
	for _, layout := range []Layout{RowMajor, ColMajor} {
		t.Run(layout.String(), func(t *testing.T) {
			// Repacked: f16 multiplicand.
			t.Run("Float16", func(t *testing.T) {
				tile := Make(dtypes.Float16, UseA, 16, 16, layout)
				src := make([]float16.Float16, tile.Size())
				for ii := range src {
					src[ii] = float16.Fromfloat32(float32(ii) / 4)
				}
				roundTrip(t, tile, src, make([]float16.Float16, tile.Size()))
			})

			// Repacked: bf16 multiplicand with an asymmetric fragment.
			t.Run("BFloat16", func(t *testing.T) {
				tile := Make(dtypes.BFloat16, UseB, 16, 32, layout)
				src := make([]bfloat16.BFloat16, tile.Size())
				for ii := range src {
					src[ii] = bfloat16.FromFloat32(float32(ii) - 100)
				}
				roundTrip(t, tile, src, make([]bfloat16.BFloat16, tile.Size()))
			})

			// Packed 4:1: int8 multiplicand.
			t.Run("Int8", func(t *testing.T) {
				tile := Make(dtypes.Int8, UseA, 8, 16, layout)
				src := make([]int8, tile.Size())
				for ii := range src {
					src[ii] = int8(ii * 3)
				}
				roundTrip(t, tile, src, make([]int8, tile.Size()))
			})

			// Not repacked: f32 accumulator.
			t.Run("Float32", func(t *testing.T) {
				tile := Make(dtypes.Float32, UseAccumulator, 16, 16, layout)
				src := make([]float32, tile.Size())
				for ii := range src {
					src[ii] = float32(ii) * 0.5
				}
				roundTrip(t, tile, src, make([]float32, tile.Size()))
			})

			// Not repacked: f64.
			t.Run("Float64", func(t *testing.T) {
				tile := Make(dtypes.Float64, UseAccumulator, 8, 8, layout)
				src := make([]float64, tile.Size())
				for ii := range src {
					src[ii] = float64(ii) * 0.25
				}
				roundTrip(t, tile, src, make([]float64, tile.Size()))
			})
		})
	}
}

func roundTrip[T comparable](t *testing.T, tile Tile, src []T, dst []T) {
	frag, err := NewFragment(tile, testLanes)
	require.NoError(t, err)
	stride := tile.Cols
	if tile.Layout == ColMajor {
		stride = tile.Rows
	}
	require.NoError(t, frag.LoadLinear(src, stride))
	require.NoError(t, frag.StoreLinear(dst, stride))
	assert.Equal(t, src, dst)
}

// TestLoadRepacksAdjacentPairs loads a 16x16 f16 tile with sequential values
// and checks the fragment's int32 words are the bit-reinterpretation of
// adjacent source pairs, in source order, repeated cyclically.
func TestLoadRepacksAdjacentPairs(t *testing.T) {
	tile := Make(dtypes.Float16, UseA, 16, 16, RowMajor)
	frag, err := NewFragment(tile, testLanes)
	require.NoError(t, err)

	src := make([]float16.Float16, tile.Size())
	for ii := range src {
		src[ii] = float16.Fromfloat32(float32(ii))
	}
	require.NoError(t, frag.LoadLinear(src, 16))

	words, ok := frag.Flat().([]int32)
	require.True(t, ok, "f16 multiplicands are stored as int32")
	require.Len(t, words, testLanes*8) // 512 units, each element held twice.
	for wi, word := range words {
		lo := src[(2*wi)%tile.Size()]
		hi := src[(2*wi+1)%tile.Size()]
		want := int32(uint32(lo.Bits()) | uint32(hi.Bits())<<16)
		require.Equalf(t, want, word, "word %d", wi)
	}
}

func TestLoadLinearStride(t *testing.T) {
	// A 16x16 row-major tile inside a 16x24 image: stride 24.
	tile := Make(dtypes.Float32, UseAccumulator, 16, 16, RowMajor)
	frag, err := NewFragment(tile, testLanes)
	require.NoError(t, err)

	src := make([]float32, 16*24)
	for ii := range src {
		src[ii] = float32(ii)
	}
	require.NoError(t, frag.LoadLinear(src, 24))

	dst := make([]float32, tile.Size())
	require.NoError(t, frag.StoreLinear(dst, 16))
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			require.Equal(t, src[r*24+c], dst[r*16+c])
		}
	}

	// A stride below the tile's leading dimension is rejected.
	require.Error(t, frag.LoadLinear(src, 15))
	// A source too short for the stride is rejected.
	require.Error(t, frag.LoadLinear(src[:100], 24))
	// A source of the wrong element type is rejected.
	require.Error(t, frag.LoadLinear(make([]float64, 16*24), 24))
}

func TestFill(t *testing.T) {
	tile := Make(dtypes.Float16, UseAccumulator, 16, 16, RowMajor)
	frag, err := NewFragment(tile, testLanes)
	require.NoError(t, err)
	require.NoError(t, frag.Fill(3.5))

	dst := make([]float16.Float16, tile.Size())
	require.NoError(t, frag.StoreLinear(dst, 16))
	for _, v := range dst {
		require.Equal(t, float32(3.5), v.Float32())
	}
}

func TestNewFragmentErrors(t *testing.T) {
	_, err := NewFragment(Tile{DType: dtypes.Float64, Use: UseA, Rows: 16, Cols: 16, Layout: RowMajor}, testLanes)
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = NewFragment(Make(dtypes.Float16, UseA, 16, 16, RowMajor), 0)
	require.Error(t, err)
}

func TestStorageView(t *testing.T) {
	view, err := StorageView([]int32{0x04030201, 0x08070605})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, view)

	// The view aliases the slice.
	backing := []float32{0}
	view, err = StorageView(backing)
	require.NoError(t, err)
	view[0] = 1 // backing[0] becomes the smallest denormal.
	assert.NotZero(t, backing[0])

	_, err = StorageView(42)
	require.Error(t, err)
	_, err = StorageView([]string{"no"})
	require.Error(t, err)
}
