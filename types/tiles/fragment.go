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
	"math"
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Fragment is the physical storage backing one tile instance for a whole
// execution group: lanes x SlotsPerLane slots of the layout's storage type.
//
// It is owned exclusively by the tile instance that created it -- stack-scoped
// in spirit, never shared across tiles. The slot count and storage type are a
// pure function of the tile descriptor (see Resolve), never inferred from data.
//
// The logical content of a fragment is the tile in row-major element order,
// laid down as raw bit patterns in the storage words (16-bit elements packed
// in adjacent pairs per 32-bit word, in source order) and repeated cyclically
// when the hardware layout replicates multiplicand elements across lanes.
type Fragment struct {
	tile   Tile
	layout FragmentLayout
	lanes  int

	// flat is always a slice of the storage type (layout.StorageDType),
	// with lanes*layout.SlotsPerLane elements.
	flat any
}

// NewFragment allocates the fragment backing one tile instance on a group with
// the given number of lanes. It fails with ErrUnsupported if the descriptor
// has no hardware fragment layout.
func NewFragment(t Tile, lanes int) (*Fragment, error) {
	layout, err := Resolve(t)
	if err != nil {
		return nil, err
	}
	if lanes <= 0 {
		return nil, errors.Errorf("NewFragment(%s): lanes must be positive, got %d", t, lanes)
	}
	numSlots := lanes * layout.SlotsPerLane
	flat := reflect.MakeSlice(reflect.SliceOf(layout.StorageDType.GoType()), numSlots, numSlots).Interface()
	return &Fragment{tile: t, layout: layout, lanes: lanes, flat: flat}, nil
}

// Tile returns the descriptor the fragment was allocated for.
func (f *Fragment) Tile() Tile { return f.tile }

// Layout returns the physical fragment layout.
func (f *Fragment) Layout() FragmentLayout { return f.layout }

// Lanes returns the number of lanes of the group the fragment spans.
func (f *Fragment) Lanes() int { return f.lanes }

// Flat returns the fragment storage as a slice of the storage type
// (e.g. []int32 for repacked 16-bit tiles). It aliases the fragment.
func (f *Fragment) Flat() any { return f.flat }

// Bytes returns the raw storage of the whole fragment. It aliases the fragment.
func (f *Fragment) Bytes() []byte {
	view, err := StorageView(f.flat)
	if err != nil {
		// flat is always allocated from a known storage dtype.
		panic(err)
	}
	return view
}

// units returns the fragment storage reinterpreted as logical-element units:
// the byte view plus the logical element size and the number of units.
func (f *Fragment) units() (view []byte, elemSize, numUnits int) {
	view = f.Bytes()
	elemSize = int(f.tile.DType.Memory())
	numUnits = len(view) / elemSize
	return
}

// linearOffset returns the position of tile element with sequence index seq
// (row-major element order) in a linear image with the given layout and
// stride. Stride is measured in logical elements.
func (f *Fragment) linearOffset(seq, stride int) int {
	r, c := seq/f.tile.Cols, seq%f.tile.Cols
	if f.tile.Layout == ColMajor {
		return c*stride + r
	}
	return r*stride + c
}

// minLinearLen is the number of elements a linear image must have to cover the
// whole tile at the given stride.
func (f *Fragment) minLinearLen(stride int) (int, error) {
	leading, perLine := f.tile.Rows, f.tile.Cols
	if f.tile.Layout == ColMajor {
		leading, perLine = f.tile.Cols, f.tile.Rows
	}
	if stride < perLine {
		return 0, errors.Errorf("tile %s: stride %d smaller than the tile's leading dimension %d", f.tile, stride, perLine)
	}
	return (leading-1)*stride + perLine, nil
}

// LoadLinear fills the fragment from a linear image of the tile.
//
// src must be a slice of the tile's logical element type; stride is measured
// in logical elements (the conversion to storage-word addressing for repacked
// types happens here). Bit patterns are copied exactly; no numeric conversion
// takes place.
func (f *Fragment) LoadLinear(src any, stride int) error {
	minLen, err := f.minLinearLen(stride)
	if err != nil {
		return err
	}
	srcView, err := checkedView(src, f.tile.DType, minLen)
	if err != nil {
		return errors.WithMessagef(err, "loading tile %s", f.tile)
	}
	fragView, elemSize, numUnits := f.units()
	numElements := f.tile.Size()
	for unit := 0; unit < numUnits; unit++ {
		seq := unit % numElements
		offset := f.linearOffset(seq, stride) * elemSize
		copy(fragView[unit*elemSize:(unit+1)*elemSize], srcView[offset:offset+elemSize])
	}
	return nil
}

// StoreLinear writes the fragment back to a linear image of the tile.
//
// dst must be a slice of the tile's logical element type; stride is measured
// in logical elements. For replicated fragments the first copy is written.
func (f *Fragment) StoreLinear(dst any, stride int) error {
	minLen, err := f.minLinearLen(stride)
	if err != nil {
		return err
	}
	dstView, err := checkedView(dst, f.tile.DType, minLen)
	if err != nil {
		return errors.WithMessagef(err, "storing tile %s", f.tile)
	}
	fragView, elemSize, _ := f.units()
	for seq := 0; seq < f.tile.Size(); seq++ {
		offset := f.linearOffset(seq, stride) * elemSize
		copy(dstView[offset:offset+elemSize], fragView[seq*elemSize:(seq+1)*elemSize])
	}
	return nil
}

// Fill sets every logical element of the fragment to the given value,
// converted once to the tile's element type.
func (f *Fragment) Fill(value float64) error {
	elemBits, err := encodeElement(f.tile.DType, value)
	if err != nil {
		return errors.WithMessagef(err, "filling tile %s", f.tile)
	}
	fragView, elemSize, numUnits := f.units()
	for unit := 0; unit < numUnits; unit++ {
		copy(fragView[unit*elemSize:(unit+1)*elemSize], elemBits)
	}
	return nil
}

// encodeElement converts value to dtype and returns its little-endian bit
// image. Only the dtypes present in the fragment table are supported.
func encodeElement(dtype dtypes.DType, value float64) ([]byte, error) {
	switch dtype {
	case dtypes.Float16:
		bits := float16.Fromfloat32(float32(value)).Bits()
		return []byte{byte(bits), byte(bits >> 8)}, nil
	case dtypes.BFloat16:
		bits := bfloat16.FromFloat32(float32(value)).Bits()
		return []byte{byte(bits), byte(bits >> 8)}, nil
	case dtypes.Uint16:
		bits := uint16(value)
		return []byte{byte(bits), byte(bits >> 8)}, nil
	case dtypes.Int8:
		return []byte{byte(int8(value))}, nil
	case dtypes.Uint8:
		return []byte{uint8(value)}, nil
	case dtypes.Int32:
		bits := uint32(int32(value))
		return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}, nil
	case dtypes.Float32:
		bits := math.Float32bits(float32(value))
		return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}, nil
	case dtypes.Float64:
		bits := math.Float64bits(value)
		result := make([]byte, 8)
		for ii := range result {
			result[ii] = byte(bits >> (8 * ii))
		}
		return result, nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "no element encoding for dtype %s", dtype)
}
