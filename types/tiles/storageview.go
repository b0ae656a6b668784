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
	"reflect"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// StorageView exposes the memory of a flat slice of any supported element type
// as its raw bytes, so the same memory can be addressed in the packed
// native-width representation the hardware consumes.
//
// This is the single reinterpretation point of the package: moving tile data
// between linear memory and fragments never converts values numerically, it
// copies bit patterns through views produced here. The view aliases the slice
// it was built from.
//
// The same principle extends to element types outside the multiply-accumulate
// tables: booleans, for instance, never move over copy paths as booleans, they
// move as their single-byte storage representation.
func StorageView(flat any) ([]byte, error) {
	value := reflect.ValueOf(flat)
	if value.Kind() != reflect.Slice {
		return nil, errors.Errorf("StorageView expects a slice, got %T", flat)
	}
	if dtypes.FromGoType(value.Type().Elem()) == dtypes.InvalidDType {
		return nil, errors.Errorf("StorageView: %T is not a slice of a supported element type", flat)
	}
	if value.Len() == 0 {
		return nil, nil
	}
	elemSize := int(value.Type().Elem().Size())
	bytePointer := (*byte)(value.Index(0).Addr().UnsafePointer())
	return unsafe.Slice(bytePointer, value.Len()*elemSize), nil
}

// checkedView returns the byte view of flat after checking that it is a slice
// of exactly the given dtype with at least minLen elements.
func checkedView(flat any, dtype dtypes.DType, minLen int) ([]byte, error) {
	value := reflect.ValueOf(flat)
	if value.Kind() != reflect.Slice {
		return nil, errors.Errorf("expected a slice of %s, got %T", dtype, flat)
	}
	if got := dtypes.FromGoType(value.Type().Elem()); got != dtype {
		return nil, errors.Errorf("expected a slice of %s, got %T (%s)", dtype, flat, got)
	}
	if value.Len() < minLen {
		return nil, errors.Errorf("slice of %s too short: need at least %d elements, got %d", dtype, minLen, value.Len())
	}
	return StorageView(flat)
}
