// Package isa enumerates the tensor-core instruction set and selects the
// concrete hardware instruction for a tile load, store or multiply-accumulate.
//
// Selection is a pure lookup over a finite table: the hardware defines a small
// fixed set of legal (M, N, K) shapes, and for each shape a fixed set of
// element types and layout modes. There is no heuristic search and no generic
// fallback -- a combination absent from the table fails with
// tiles.ErrUnsupported before any instruction is issued.
//
// Each Opcode corresponds 1:1 to a fixed hardware instruction signature
// (operand count, operand widths, layout-mode integer). The tables here are
// the load-bearing compatibility surface: an argument-order or width mismatch
// against the hardware is silent corruption, not a caught error, which is why
// the entries are plain auditable data instead of logic.
package isa

import "fmt"

// Shape is a legal multiply-accumulate geometry: A is MxK, B is KxN and the
// accumulator is MxN.
type Shape struct {
	M, N, K int
}

// Hardware shapes of this instruction family. M8N8K4 is the extended
// (double) precision shape.
var (
	M16N16K16 = Shape{16, 16, 16}
	M8N32K16  = Shape{8, 32, 16}
	M32N8K16  = Shape{32, 8, 16}
	M8N8K4    = Shape{8, 8, 4}
)

// SupportedShapes returns the legal shapes in a fixed order.
func SupportedShapes() []Shape {
	return []Shape{M16N16K16, M8N32K16, M32N8K16, M8N8K4}
}

// String implements fmt.Stringer, using the hardware mnemonic order (m, n, k).
func (s Shape) String() string {
	return fmt.Sprintf("m%dn%dk%d", s.M, s.N, s.K)
}

// Opcode identifies one hardware instruction. The zero value is invalid.
//
// Families: HMMA operates on f16 multiplicands, IMMA on 8-bit integers (with
// i32 accumulators), BMMA on bf16 bit patterns with f32 accumulators, DMMA on
// f64. Load/store opcodes marshal fragments; MMA opcodes compute D = A*B + C.
type Opcode int

const (
	OpcodeInvalid Opcode = iota

	// m16n16k16 loads.
	HMMALoadA_M16N16K16
	HMMALoadB_M16N16K16
	HMMALoadCF16_M16N16K16
	HMMALoadCF32_M16N16K16
	BMMALoadA_M16N16K16
	BMMALoadB_M16N16K16
	IMMALoadAS8_M16N16K16
	IMMALoadBS8_M16N16K16
	IMMALoadAU8_M16N16K16
	IMMALoadBU8_M16N16K16
	IMMALoadC_M16N16K16

	// m8n32k16 loads.
	HMMALoadA_M8N32K16
	HMMALoadB_M8N32K16
	HMMALoadCF16_M8N32K16
	HMMALoadCF32_M8N32K16
	BMMALoadA_M8N32K16
	BMMALoadB_M8N32K16
	IMMALoadAS8_M8N32K16
	IMMALoadBS8_M8N32K16
	IMMALoadAU8_M8N32K16
	IMMALoadBU8_M8N32K16
	IMMALoadC_M8N32K16

	// m32n8k16 loads.
	HMMALoadA_M32N8K16
	HMMALoadB_M32N8K16
	HMMALoadCF16_M32N8K16
	HMMALoadCF32_M32N8K16
	BMMALoadA_M32N8K16
	BMMALoadB_M32N8K16
	IMMALoadAS8_M32N8K16
	IMMALoadBS8_M32N8K16
	IMMALoadAU8_M32N8K16
	IMMALoadBU8_M32N8K16
	IMMALoadC_M32N8K16

	// m8n8k4 loads.
	DMMALoadA_M8N8K4
	DMMALoadB_M8N8K4
	DMMALoadC_M8N8K4

	// Accumulator stores.
	HMMAStoreCF16_M16N16K16
	HMMAStoreCF32_M16N16K16
	IMMAStoreC_M16N16K16
	HMMAStoreCF16_M8N32K16
	HMMAStoreCF32_M8N32K16
	IMMAStoreC_M8N32K16
	HMMAStoreCF16_M32N8K16
	HMMAStoreCF32_M32N8K16
	IMMAStoreC_M32N8K16
	DMMAStoreC_M8N8K4

	// Multiply-accumulate. The F16F16/F32F32 suffix is the (C, D) accumulate
	// width pair; the narrow f16 accumulate is a distinct instruction with a
	// distinct result fragment width.
	HMMAF16F16_M16N16K16
	HMMAF32F32_M16N16K16
	BMMAF32_M16N16K16
	IMMAS8_M16N16K16
	IMMAU8_M16N16K16
	HMMAF16F16_M8N32K16
	HMMAF32F32_M8N32K16
	BMMAF32_M8N32K16
	IMMAS8_M8N32K16
	IMMAU8_M8N32K16
	HMMAF16F16_M32N8K16
	HMMAF32F32_M32N8K16
	BMMAF32_M32N8K16
	IMMAS8_M32N8K16
	IMMAU8_M32N8K16
	DMMAF64_M8N8K4

	opcodeLast
)

// opcodeNames maps each opcode to its hardware mnemonic.
var opcodeNames = map[Opcode]string{
	HMMALoadA_M16N16K16:     "hmma.m16n16k16.ld.a",
	HMMALoadB_M16N16K16:     "hmma.m16n16k16.ld.b",
	HMMALoadCF16_M16N16K16:  "hmma.m16n16k16.ld.c.f16",
	HMMALoadCF32_M16N16K16:  "hmma.m16n16k16.ld.c.f32",
	BMMALoadA_M16N16K16:     "mma.bf16.m16n16k16.ld.a",
	BMMALoadB_M16N16K16:     "mma.bf16.m16n16k16.ld.b",
	IMMALoadAS8_M16N16K16:   "imma.m16n16k16.ld.a.s8",
	IMMALoadBS8_M16N16K16:   "imma.m16n16k16.ld.b.s8",
	IMMALoadAU8_M16N16K16:   "imma.m16n16k16.ld.a.u8",
	IMMALoadBU8_M16N16K16:   "imma.m16n16k16.ld.b.u8",
	IMMALoadC_M16N16K16:     "imma.m16n16k16.ld.c",
	HMMALoadA_M8N32K16:      "hmma.m8n32k16.ld.a",
	HMMALoadB_M8N32K16:      "hmma.m8n32k16.ld.b",
	HMMALoadCF16_M8N32K16:   "hmma.m8n32k16.ld.c.f16",
	HMMALoadCF32_M8N32K16:   "hmma.m8n32k16.ld.c.f32",
	BMMALoadA_M8N32K16:      "mma.bf16.m8n32k16.ld.a",
	BMMALoadB_M8N32K16:      "mma.bf16.m8n32k16.ld.b",
	IMMALoadAS8_M8N32K16:    "imma.m8n32k16.ld.a.s8",
	IMMALoadBS8_M8N32K16:    "imma.m8n32k16.ld.b.s8",
	IMMALoadAU8_M8N32K16:    "imma.m8n32k16.ld.a.u8",
	IMMALoadBU8_M8N32K16:    "imma.m8n32k16.ld.b.u8",
	IMMALoadC_M8N32K16:      "imma.m8n32k16.ld.c",
	HMMALoadA_M32N8K16:      "hmma.m32n8k16.ld.a",
	HMMALoadB_M32N8K16:      "hmma.m32n8k16.ld.b",
	HMMALoadCF16_M32N8K16:   "hmma.m32n8k16.ld.c.f16",
	HMMALoadCF32_M32N8K16:   "hmma.m32n8k16.ld.c.f32",
	BMMALoadA_M32N8K16:      "mma.bf16.m32n8k16.ld.a",
	BMMALoadB_M32N8K16:      "mma.bf16.m32n8k16.ld.b",
	IMMALoadAS8_M32N8K16:    "imma.m32n8k16.ld.a.s8",
	IMMALoadBS8_M32N8K16:    "imma.m32n8k16.ld.b.s8",
	IMMALoadAU8_M32N8K16:    "imma.m32n8k16.ld.a.u8",
	IMMALoadBU8_M32N8K16:    "imma.m32n8k16.ld.b.u8",
	IMMALoadC_M32N8K16:      "imma.m32n8k16.ld.c",
	DMMALoadA_M8N8K4:        "dmma.m8n8k4.ld.a",
	DMMALoadB_M8N8K4:        "dmma.m8n8k4.ld.b",
	DMMALoadC_M8N8K4:        "dmma.m8n8k4.ld.c",
	HMMAStoreCF16_M16N16K16: "hmma.m16n16k16.st.c.f16",
	HMMAStoreCF32_M16N16K16: "hmma.m16n16k16.st.c.f32",
	IMMAStoreC_M16N16K16:    "imma.m16n16k16.st.c.i32",
	HMMAStoreCF16_M8N32K16:  "hmma.m8n32k16.st.c.f16",
	HMMAStoreCF32_M8N32K16:  "hmma.m8n32k16.st.c.f32",
	IMMAStoreC_M8N32K16:     "imma.m8n32k16.st.c.i32",
	HMMAStoreCF16_M32N8K16:  "hmma.m32n8k16.st.c.f16",
	HMMAStoreCF32_M32N8K16:  "hmma.m32n8k16.st.c.f32",
	IMMAStoreC_M32N8K16:     "imma.m32n8k16.st.c.i32",
	DMMAStoreC_M8N8K4:       "dmma.m8n8k4.st.c.f64",
	HMMAF16F16_M16N16K16:    "hmma.m16n16k16.mma.f16f16",
	HMMAF32F32_M16N16K16:    "hmma.m16n16k16.mma.f32f32",
	BMMAF32_M16N16K16:       "mma.bf16.m16n16k16.mma.f32",
	IMMAS8_M16N16K16:        "imma.m16n16k16.mma.s8",
	IMMAU8_M16N16K16:        "imma.m16n16k16.mma.u8",
	HMMAF16F16_M8N32K16:     "hmma.m8n32k16.mma.f16f16",
	HMMAF32F32_M8N32K16:     "hmma.m8n32k16.mma.f32f32",
	BMMAF32_M8N32K16:        "mma.bf16.m8n32k16.mma.f32",
	IMMAS8_M8N32K16:         "imma.m8n32k16.mma.s8",
	IMMAU8_M8N32K16:         "imma.m8n32k16.mma.u8",
	HMMAF16F16_M32N8K16:     "hmma.m32n8k16.mma.f16f16",
	HMMAF32F32_M32N8K16:     "hmma.m32n8k16.mma.f32f32",
	BMMAF32_M32N8K16:        "mma.bf16.m32n8k16.mma.f32",
	IMMAS8_M32N8K16:         "imma.m32n8k16.mma.s8",
	IMMAU8_M32N8K16:         "imma.m32n8k16.mma.u8",
	DMMAF64_M8N8K4:          "dmma.m8n8k4.mma.f64",
}

// String implements fmt.Stringer, returning the hardware mnemonic.
func (op Opcode) String() string {
	if name, found := opcodeNames[op]; found {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Valid reports whether op names an actual instruction.
func (op Opcode) Valid() bool {
	return op > OpcodeInvalid && op < opcodeLast
}
