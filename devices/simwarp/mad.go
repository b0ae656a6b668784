package simwarp

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/tensorcores/isa"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// ExecMAD implements devices.Group: d = a*b + c, computed with a reference
// software matrix multiply over the logical tile contents.
//
// Arithmetic widths follow the hardware: 16-bit float multiplicands are
// multiplied and summed in float32 (a narrow f16 accumulator only changes the
// width of the stored result), 8-bit integers accumulate in int32, doubles in
// float64.
func (g *group) ExecMAD(instruction isa.Instruction, d, a, b, c *tiles.Fragment) error {
	for _, frag := range []*tiles.Fragment{d, a, b, c} {
		if err := g.checkFragment(frag); err != nil {
			return errors.WithMessagef(err, "%s", instruction.Op)
		}
	}
	ta, tb, tc, td := a.Tile(), b.Tile(), c.Tile(), d.Tile()
	if ta.Use != tiles.UseA || tb.Use != tiles.UseB || tc.Use != tiles.UseAccumulator {
		return errors.Errorf("multiply-accumulate requires uses (a, b, accumulator), got (%s, %s, %s)", ta.Use, tb.Use, tc.Use)
	}
	if ta.DType != tb.DType {
		return errors.Wrapf(isa.ErrTypeMismatch, "A is %s, B is %s", ta.DType, tb.DType)
	}
	shape := instruction.Shape
	if ta.Rows != shape.M || ta.Cols != shape.K || tb.Rows != shape.K || tb.Cols != shape.N ||
		tc.Rows != shape.M || tc.Cols != shape.N {
		return errors.Errorf("tile shapes A=%dx%d, B=%dx%d, C=%dx%d do not form %s",
			ta.Rows, ta.Cols, tb.Rows, tb.Cols, tc.Rows, tc.Cols, shape)
	}
	if td.DType != tc.DType || td.Rows != tc.Rows || td.Cols != tc.Cols || td.Use != tiles.UseAccumulator {
		return errors.Errorf("result tile %s does not match accumulator tile %s", td, tc)
	}
	expected, err := isa.SelectMAD(ta.DType, tc.DType, shape.M, shape.K, shape.N, ta.Layout, tb.Layout)
	if err != nil {
		return err
	}
	if expected != instruction {
		return errors.Errorf("instruction %s (layout mode %d) does not match tiles, which multiply with %s (layout mode %d)",
			instruction.Op, instruction.LayoutMode, expected.Op, expected.LayoutMode)
	}

	switch tc.DType {
	case dtypes.Float16, dtypes.Float32:
		va, err := decodeFloat32(a)
		if err != nil {
			return err
		}
		vb, err := decodeFloat32(b)
		if err != nil {
			return err
		}
		vc, err := decodeFloat32(c)
		if err != nil {
			return err
		}
		vd := make([]float32, shape.M*shape.N)
		refMAD(vd, va, vb, vc, shape.M, shape.K, shape.N)
		if err := encodeResult(d, vd); err != nil {
			return err
		}
		g.issued.Add(1)
		return nil
	case dtypes.Int32:
		va, err := decodeInt32(a)
		if err != nil {
			return err
		}
		vb, err := decodeInt32(b)
		if err != nil {
			return err
		}
		vc, err := decodeInt32(c)
		if err != nil {
			return err
		}
		vd := make([]int32, shape.M*shape.N)
		refMAD(vd, va, vb, vc, shape.M, shape.K, shape.N)
		if err := encodeResultInt32(d, vd); err != nil {
			return err
		}
		g.issued.Add(1)
		return nil
	case dtypes.Float64:
		va, err := decodeFloat64(a)
		if err != nil {
			return err
		}
		vb, err := decodeFloat64(b)
		if err != nil {
			return err
		}
		vc, err := decodeFloat64(c)
		if err != nil {
			return err
		}
		vd := make([]float64, shape.M*shape.N)
		refMAD(vd, va, vb, vc, shape.M, shape.K, shape.N)
		if err := encodeResultFloat64(d, vd); err != nil {
			return err
		}
		g.issued.Add(1)
		return nil
	}
	return errors.Errorf("no reference arithmetic for accumulator dtype %s", tc.DType)
}

// refMAD computes d = a*b + c for row-major a (m x k), b (k x n), c/d (m x n).
func refMAD[T constraints.Float | constraints.Signed](d, a, b, c []T, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := c[i*n+j]
			for x := 0; x < k; x++ {
				sum += a[i*k+x] * b[x*n+j]
			}
			d[i*n+j] = sum
		}
	}
}

// decodeFloat32 reads the logical tile elements of a fragment, widened to
// float32. Bit patterns are interpreted per the tile's logical dtype; the
// deprecated Uint16 path carries bf16 bits.
func decodeFloat32(frag *tiles.Fragment) ([]float32, error) {
	view := frag.Bytes()
	t := frag.Tile()
	result := make([]float32, t.Size())
	switch t.DType {
	case dtypes.Float16:
		for ii := range result {
			result[ii] = float16.Frombits(binary.LittleEndian.Uint16(view[2*ii:])).Float32()
		}
	case dtypes.BFloat16, dtypes.Uint16:
		for ii := range result {
			result[ii] = bfloat16.FromBits(binary.LittleEndian.Uint16(view[2*ii:])).Float32()
		}
	case dtypes.Float32:
		for ii := range result {
			result[ii] = math.Float32frombits(binary.LittleEndian.Uint32(view[4*ii:]))
		}
	default:
		return nil, errors.Errorf("cannot decode %s as float32", t)
	}
	return result, nil
}

// decodeInt32 reads the logical tile elements of an integer fragment, widened
// to int32.
func decodeInt32(frag *tiles.Fragment) ([]int32, error) {
	view := frag.Bytes()
	t := frag.Tile()
	result := make([]int32, t.Size())
	switch t.DType {
	case dtypes.Int8:
		for ii := range result {
			result[ii] = int32(int8(view[ii]))
		}
	case dtypes.Uint8:
		for ii := range result {
			result[ii] = int32(view[ii])
		}
	case dtypes.Int32:
		for ii := range result {
			result[ii] = int32(binary.LittleEndian.Uint32(view[4*ii:]))
		}
	default:
		return nil, errors.Errorf("cannot decode %s as int32", t)
	}
	return result, nil
}

// decodeFloat64 reads the logical tile elements of a double fragment.
func decodeFloat64(frag *tiles.Fragment) ([]float64, error) {
	view := frag.Bytes()
	t := frag.Tile()
	if t.DType != dtypes.Float64 {
		return nil, errors.Errorf("cannot decode %s as float64", t)
	}
	result := make([]float64, t.Size())
	for ii := range result {
		result[ii] = math.Float64frombits(binary.LittleEndian.Uint64(view[8*ii:]))
	}
	return result, nil
}

// encodeResult writes float32 results into an f32 or (narrow) f16 accumulator
// fragment.
func encodeResult(frag *tiles.Fragment, values []float32) error {
	view := frag.Bytes()
	switch frag.Tile().DType {
	case dtypes.Float32:
		for ii, v := range values {
			binary.LittleEndian.PutUint32(view[4*ii:], math.Float32bits(v))
		}
	case dtypes.Float16:
		for ii, v := range values {
			binary.LittleEndian.PutUint16(view[2*ii:], float16.Fromfloat32(v).Bits())
		}
	default:
		return errors.Errorf("cannot encode float32 results into %s", frag.Tile())
	}
	return nil
}

func encodeResultInt32(frag *tiles.Fragment, values []int32) error {
	if frag.Tile().DType != dtypes.Int32 {
		return errors.Errorf("cannot encode int32 results into %s", frag.Tile())
	}
	view := frag.Bytes()
	for ii, v := range values {
		binary.LittleEndian.PutUint32(view[4*ii:], uint32(v))
	}
	return nil
}

func encodeResultFloat64(frag *tiles.Fragment, values []float64) error {
	if frag.Tile().DType != dtypes.Float64 {
		return errors.Errorf("cannot encode float64 results into %s", frag.Tile())
	}
	view := frag.Bytes()
	for ii, v := range values {
		binary.LittleEndian.PutUint64(view[8*ii:], math.Float64bits(v))
	}
	return nil
}
