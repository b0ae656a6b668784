package isa

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorcores/types/tiles"
)

// loadKey indexes the tile-load table. Layout is not part of the key: it is
// passed to the instruction as its layout-mode operand.
type loadKey struct {
	dtype      dtypes.DType
	use        tiles.Use
	rows, cols int
}

type loadEntry struct {
	op    Opcode
	shape Shape
}

// loadOps is the load-instruction table, partitioned by shape, then element
// type, then use. Uint16 entries are the deprecated bf16-bits path and select
// the same bf16 instructions as BFloat16.
var loadOps = map[loadKey]loadEntry{
	// m16n16k16
	{dtypes.Float16, tiles.UseA, 16, 16}:           {HMMALoadA_M16N16K16, M16N16K16},
	{dtypes.Float16, tiles.UseB, 16, 16}:           {HMMALoadB_M16N16K16, M16N16K16},
	{dtypes.Float16, tiles.UseAccumulator, 16, 16}: {HMMALoadCF16_M16N16K16, M16N16K16},
	{dtypes.Float32, tiles.UseAccumulator, 16, 16}: {HMMALoadCF32_M16N16K16, M16N16K16},
	{dtypes.BFloat16, tiles.UseA, 16, 16}:          {BMMALoadA_M16N16K16, M16N16K16},
	{dtypes.BFloat16, tiles.UseB, 16, 16}:          {BMMALoadB_M16N16K16, M16N16K16},
	{dtypes.Uint16, tiles.UseA, 16, 16}:            {BMMALoadA_M16N16K16, M16N16K16},
	{dtypes.Uint16, tiles.UseB, 16, 16}:            {BMMALoadB_M16N16K16, M16N16K16},
	{dtypes.Int8, tiles.UseA, 16, 16}:              {IMMALoadAS8_M16N16K16, M16N16K16},
	{dtypes.Int8, tiles.UseB, 16, 16}:              {IMMALoadBS8_M16N16K16, M16N16K16},
	{dtypes.Uint8, tiles.UseA, 16, 16}:             {IMMALoadAU8_M16N16K16, M16N16K16},
	{dtypes.Uint8, tiles.UseB, 16, 16}:             {IMMALoadBU8_M16N16K16, M16N16K16},
	{dtypes.Int32, tiles.UseAccumulator, 16, 16}:   {IMMALoadC_M16N16K16, M16N16K16},

	// m8n32k16
	{dtypes.Float16, tiles.UseA, 8, 16}:           {HMMALoadA_M8N32K16, M8N32K16},
	{dtypes.Float16, tiles.UseB, 16, 32}:          {HMMALoadB_M8N32K16, M8N32K16},
	{dtypes.Float16, tiles.UseAccumulator, 8, 32}: {HMMALoadCF16_M8N32K16, M8N32K16},
	{dtypes.Float32, tiles.UseAccumulator, 8, 32}: {HMMALoadCF32_M8N32K16, M8N32K16},
	{dtypes.BFloat16, tiles.UseA, 8, 16}:          {BMMALoadA_M8N32K16, M8N32K16},
	{dtypes.BFloat16, tiles.UseB, 16, 32}:         {BMMALoadB_M8N32K16, M8N32K16},
	{dtypes.Uint16, tiles.UseA, 8, 16}:            {BMMALoadA_M8N32K16, M8N32K16},
	{dtypes.Uint16, tiles.UseB, 16, 32}:           {BMMALoadB_M8N32K16, M8N32K16},
	{dtypes.Int8, tiles.UseA, 8, 16}:              {IMMALoadAS8_M8N32K16, M8N32K16},
	{dtypes.Int8, tiles.UseB, 16, 32}:             {IMMALoadBS8_M8N32K16, M8N32K16},
	{dtypes.Uint8, tiles.UseA, 8, 16}:             {IMMALoadAU8_M8N32K16, M8N32K16},
	{dtypes.Uint8, tiles.UseB, 16, 32}:            {IMMALoadBU8_M8N32K16, M8N32K16},
	{dtypes.Int32, tiles.UseAccumulator, 8, 32}:   {IMMALoadC_M8N32K16, M8N32K16},

	// m32n8k16
	{dtypes.Float16, tiles.UseA, 32, 16}:          {HMMALoadA_M32N8K16, M32N8K16},
	{dtypes.Float16, tiles.UseB, 16, 8}:           {HMMALoadB_M32N8K16, M32N8K16},
	{dtypes.Float16, tiles.UseAccumulator, 32, 8}: {HMMALoadCF16_M32N8K16, M32N8K16},
	{dtypes.Float32, tiles.UseAccumulator, 32, 8}: {HMMALoadCF32_M32N8K16, M32N8K16},
	{dtypes.BFloat16, tiles.UseA, 32, 16}:         {BMMALoadA_M32N8K16, M32N8K16},
	{dtypes.BFloat16, tiles.UseB, 16, 8}:          {BMMALoadB_M32N8K16, M32N8K16},
	{dtypes.Uint16, tiles.UseA, 32, 16}:           {BMMALoadA_M32N8K16, M32N8K16},
	{dtypes.Uint16, tiles.UseB, 16, 8}:            {BMMALoadB_M32N8K16, M32N8K16},
	{dtypes.Int8, tiles.UseA, 32, 16}:             {IMMALoadAS8_M32N8K16, M32N8K16},
	{dtypes.Int8, tiles.UseB, 16, 8}:              {IMMALoadBS8_M32N8K16, M32N8K16},
	{dtypes.Uint8, tiles.UseA, 32, 16}:            {IMMALoadAU8_M32N8K16, M32N8K16},
	{dtypes.Uint8, tiles.UseB, 16, 8}:             {IMMALoadBU8_M32N8K16, M32N8K16},
	{dtypes.Int32, tiles.UseAccumulator, 32, 8}:   {IMMALoadC_M32N8K16, M32N8K16},

	// m8n8k4
	{dtypes.Float64, tiles.UseA, 8, 4}:           {DMMALoadA_M8N8K4, M8N8K4},
	{dtypes.Float64, tiles.UseB, 4, 8}:           {DMMALoadB_M8N8K4, M8N8K4},
	{dtypes.Float64, tiles.UseAccumulator, 8, 8}: {DMMALoadC_M8N8K4, M8N8K4},
}

// storeKey indexes the accumulator-store table. Only accumulators can be
// stored; the use is implicit.
type storeKey struct {
	dtype      dtypes.DType
	rows, cols int
}

var storeOps = map[storeKey]loadEntry{
	{dtypes.Float16, 16, 16}: {HMMAStoreCF16_M16N16K16, M16N16K16},
	{dtypes.Float32, 16, 16}: {HMMAStoreCF32_M16N16K16, M16N16K16},
	{dtypes.Int32, 16, 16}:   {IMMAStoreC_M16N16K16, M16N16K16},
	{dtypes.Float16, 8, 32}:  {HMMAStoreCF16_M8N32K16, M8N32K16},
	{dtypes.Float32, 8, 32}:  {HMMAStoreCF32_M8N32K16, M8N32K16},
	{dtypes.Int32, 8, 32}:    {IMMAStoreC_M8N32K16, M8N32K16},
	{dtypes.Float16, 32, 8}:  {HMMAStoreCF16_M32N8K16, M32N8K16},
	{dtypes.Float32, 32, 8}:  {HMMAStoreCF32_M32N8K16, M32N8K16},
	{dtypes.Int32, 32, 8}:    {IMMAStoreC_M32N8K16, M32N8K16},
	{dtypes.Float64, 8, 8}:   {DMMAStoreC_M8N8K4, M8N8K4},
}

// madKey indexes the multiply-accumulate table: the multiplicand element type,
// the accumulate type and the shape. A narrow accumulate type selects a
// different instruction with a different result fragment width.
type madKey struct {
	operand, accum dtypes.DType
	shape          Shape
}

var madOps = map[madKey]Opcode{
	{dtypes.Float16, dtypes.Float16, M16N16K16}:  HMMAF16F16_M16N16K16,
	{dtypes.Float16, dtypes.Float32, M16N16K16}:  HMMAF32F32_M16N16K16,
	{dtypes.BFloat16, dtypes.Float32, M16N16K16}: BMMAF32_M16N16K16,
	{dtypes.Uint16, dtypes.Float32, M16N16K16}:   BMMAF32_M16N16K16,
	{dtypes.Int8, dtypes.Int32, M16N16K16}:       IMMAS8_M16N16K16,
	{dtypes.Uint8, dtypes.Int32, M16N16K16}:      IMMAU8_M16N16K16,

	{dtypes.Float16, dtypes.Float16, M8N32K16}:  HMMAF16F16_M8N32K16,
	{dtypes.Float16, dtypes.Float32, M8N32K16}:  HMMAF32F32_M8N32K16,
	{dtypes.BFloat16, dtypes.Float32, M8N32K16}: BMMAF32_M8N32K16,
	{dtypes.Uint16, dtypes.Float32, M8N32K16}:   BMMAF32_M8N32K16,
	{dtypes.Int8, dtypes.Int32, M8N32K16}:       IMMAS8_M8N32K16,
	{dtypes.Uint8, dtypes.Int32, M8N32K16}:      IMMAU8_M8N32K16,

	{dtypes.Float16, dtypes.Float16, M32N8K16}:  HMMAF16F16_M32N8K16,
	{dtypes.Float16, dtypes.Float32, M32N8K16}:  HMMAF32F32_M32N8K16,
	{dtypes.BFloat16, dtypes.Float32, M32N8K16}: BMMAF32_M32N8K16,
	{dtypes.Uint16, dtypes.Float32, M32N8K16}:   BMMAF32_M32N8K16,
	{dtypes.Int8, dtypes.Int32, M32N8K16}:       IMMAS8_M32N8K16,
	{dtypes.Uint8, dtypes.Int32, M32N8K16}:      IMMAU8_M32N8K16,

	{dtypes.Float64, dtypes.Float64, M8N8K4}: DMMAF64_M8N8K4,
}

// MADEntry describes one supported multiply-accumulate combination.
type MADEntry struct {
	Operand, Accum dtypes.DType
	Shape          Shape
}

// MADEntries returns every supported (operand type, accumulate type, shape)
// multiply-accumulate combination. The order is unspecified.
func MADEntries() []MADEntry {
	result := make([]MADEntry, 0, len(madOps))
	for key := range madOps {
		result = append(result, MADEntry{Operand: key.operand, Accum: key.accum, Shape: key.shape})
	}
	return result
}
