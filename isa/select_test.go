package isa

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSelectLoadCompleteness: every tile with a fragment layout has a load
// instruction, for both layouts, and the layout-mode operand is the layout id.
func TestSelectLoadCompleteness(t *testing.T) {
	for _, tile := range tiles.SupportedTiles() {
		for _, layout := range []tiles.Layout{tiles.RowMajor, tiles.ColMajor} {
			tile.Layout = layout
			instruction, err := SelectLoad(tile)
			require.NoErrorf(t, err, "tile %s", tile)
			assert.True(t, instruction.Op.Valid())
			assert.Equal(t, layout.ID(), instruction.LayoutMode)
			assert.Containsf(t, []Shape{M16N16K16, M8N32K16, M32N8K16, M8N8K4}, instruction.Shape, "tile %s", tile)
		}
	}
}

func TestSelectLoadUnsupported(t *testing.T) {
	for _, tile := range []tiles.Tile{
		{DType: dtypes.Float16, Use: tiles.UseA, Rows: 8, Cols: 8, Layout: tiles.RowMajor},
		{DType: dtypes.Float64, Use: tiles.UseB, Rows: 16, Cols: 16, Layout: tiles.RowMajor},
		{DType: dtypes.Int16, Use: tiles.UseA, Rows: 16, Cols: 16, Layout: tiles.RowMajor},
		{DType: dtypes.Float16, Use: tiles.UseA, Rows: 16, Cols: 16, Layout: tiles.Layout(5)},
	} {
		_, err := SelectLoad(tile)
		require.Errorf(t, err, "tile %s", tile)
		assert.True(t, errors.Is(err, tiles.ErrUnsupported))
	}
}

// TestSelectStore: every accumulator tile can be stored, nothing else.
func TestSelectStore(t *testing.T) {
	for _, tile := range tiles.SupportedTiles() {
		instruction, err := SelectStore(tile.DType, tile.Rows, tile.Cols, tiles.ColMajor)
		if tile.Use != tiles.UseAccumulator {
			// Multiplicand-only geometries (e.g. f16 8x16) have no store.
			if _, isAcc := storeOps[storeKey{tile.DType, tile.Rows, tile.Cols}]; !isAcc {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tiles.ErrUnsupported))
			}
			continue
		}
		require.NoErrorf(t, err, "accumulator %s", tile)
		assert.Equal(t, tiles.ColMajor.ID(), instruction.LayoutMode)
	}

	_, err := SelectStore(dtypes.Int8, 16, 16, tiles.RowMajor)
	assert.True(t, errors.Is(err, tiles.ErrUnsupported))
}

// TestSelectMADCompleteness: every declared combination selects, with the
// layout pair encoded in the layout-mode operand.
func TestSelectMADCompleteness(t *testing.T) {
	for _, entry := range MADEntries() {
		for _, la := range []tiles.Layout{tiles.RowMajor, tiles.ColMajor} {
			for _, lb := range []tiles.Layout{tiles.RowMajor, tiles.ColMajor} {
				instruction, err := SelectMAD(entry.Operand, entry.Accum,
					entry.Shape.M, entry.Shape.K, entry.Shape.N, la, lb)
				require.NoErrorf(t, err, "entry %+v", entry)
				assert.True(t, instruction.Op.Valid())
				assert.Equal(t, entry.Shape, instruction.Shape)
				assert.Equal(t, tiles.LayoutPairID(la, lb), instruction.LayoutMode)
			}
		}
	}
}

func TestSelectMADAccumWidth(t *testing.T) {
	// The narrow f16 accumulate selects a different instruction than f32.
	narrow, err := SelectMAD(dtypes.Float16, dtypes.Float16, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	require.NoError(t, err)
	wide, err := SelectMAD(dtypes.Float16, dtypes.Float32, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	require.NoError(t, err)
	assert.NotEqual(t, narrow.Op, wide.Op)

	// Uint16 is the deprecated bf16-bits path: same instruction as bf16.
	legacy, err := SelectMAD(dtypes.Uint16, dtypes.Float32, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	require.NoError(t, err)
	bf16, err := SelectMAD(dtypes.BFloat16, dtypes.Float32, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	require.NoError(t, err)
	assert.Equal(t, bf16.Op, legacy.Op)
}

func TestSelectMADUnsupported(t *testing.T) {
	// bf16 only accumulates to f32.
	_, err := SelectMAD(dtypes.BFloat16, dtypes.Float16, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	assert.True(t, errors.Is(err, tiles.ErrUnsupported))
	// f64 only on m8n8k4.
	_, err = SelectMAD(dtypes.Float64, dtypes.Float64, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	assert.True(t, errors.Is(err, tiles.ErrUnsupported))
	// No mixed f16 x f64.
	_, err = SelectMAD(dtypes.Float16, dtypes.Float64, 16, 16, 16, tiles.RowMajor, tiles.RowMajor)
	assert.True(t, errors.Is(err, tiles.ErrUnsupported))
	// Unknown shape.
	_, err = SelectMAD(dtypes.Float16, dtypes.Float32, 16, 8, 16, tiles.RowMajor, tiles.RowMajor)
	assert.True(t, errors.Is(err, tiles.ErrUnsupported))
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "hmma.m16n16k16.ld.a", HMMALoadA_M16N16K16.String())
	assert.Equal(t, "dmma.m8n8k4.mma.f64", DMMAF64_M8N8K4.String())
	assert.Equal(t, "m8n32k16", M8N32K16.String())
	assert.False(t, Opcode(-1).Valid())
	assert.False(t, opcodeLast.Valid())
}
