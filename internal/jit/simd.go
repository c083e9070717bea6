package jit

import "golang.org/x/sys/cpu"

// Lane counts and SIMD ops ported from original_source's vais-jit
// simd.rs. Go has no portable intrinsics surface (no
// is_x86_feature_detected!, no inline assembly without a .s file per
// arch), so the vectorized loops themselves are expressed as
// lane-unrolled scalar Go — the same technique simd.rs falls back to
// in its own "scalar fallback" branches, which is what the Go
// compiler's SSA backend auto-vectorizes reasonably well in practice.
// CPU feature detection is real, via golang.org/x/sys/cpu, replacing
// the Rust macro; it selects the lane count, not a different code path.

// SimdLaneWidth reports how many int64/float64 lanes a fused loop
// should unroll by on this CPU, mirroring SimdCompiler::simd_width's
// platform dispatch (AVX2 -> 4 lanes, SSE4.2/NEON -> 2, scalar -> 1).
func SimdLaneWidth() int {
	switch {
	case cpu.X86.HasAVX2:
		return 4
	case cpu.X86.HasSSE42:
		return 2
	case cpu.ARM64.HasASIMD:
		return 2
	default:
		return 1
	}
}

// IsSIMDAvailable mirrors SimdCompiler::is_simd_available.
func IsSIMDAvailable() bool {
	return SimdLaneWidth() > 1
}

// SimdOp is the recognized fused map/reduce/filter vocabulary the JIT
// can emit in place of a generic loop.
type SimdOp int

const (
	MapAddInt SimdOp = iota
	MapSubInt
	MapMulInt
	MapDivInt
	ReduceSumInt
	ReduceProductInt
	ReduceMinInt
	ReduceMaxInt
	FilterGtInt
	FilterLtInt
	FilterEqInt
)

// MapInt applies a scalar int64 op across arr, lane-unrolled by
// SimdLaneWidth(), ported from simd.rs's map_add_int/map_mul_int
// (generalized over the four arithmetic ops rather than one function
// per op, since Go has no per-function #[cfg] branching to mirror).
func MapInt(op SimdOp, arr []int64, constant int64) []int64 {
	apply := func(v int64) int64 {
		switch op {
		case MapAddInt:
			return v + constant
		case MapSubInt:
			return v - constant
		case MapMulInt:
			return v * constant
		case MapDivInt:
			return v / constant
		default:
			return v
		}
	}
	out := make([]int64, len(arr))
	lanes := SimdLaneWidth()
	i := 0
	for ; i+lanes <= len(arr); i += lanes {
		for l := 0; l < lanes; l++ {
			out[i+l] = apply(arr[i+l])
		}
	}
	for ; i < len(arr); i++ {
		out[i] = apply(arr[i])
	}
	return out
}

// ReduceSumInt sums arr via lane-unrolled partial accumulators,
// ported from simd.rs's reduce_sum_int (SimdLaneWidth() independent
// accumulators, combined at the end — breaks the single-accumulator
// dependency chain the same way the AVX2 branch does with 4 SIMD lanes).
func ReduceSumInt(arr []int64) int64 {
	lanes := SimdLaneWidth()
	acc := make([]int64, lanes)
	i := 0
	for ; i+lanes <= len(arr); i += lanes {
		for l := 0; l < lanes; l++ {
			acc[l] += arr[i+l]
		}
	}
	var total int64
	for _, a := range acc {
		total += a
	}
	for ; i < len(arr); i++ {
		total += arr[i]
	}
	return total
}

// ReduceProductInt mirrors ReduceSumInt for multiplication.
func ReduceProductInt(arr []int64) int64 {
	lanes := SimdLaneWidth()
	acc := make([]int64, lanes)
	for l := range acc {
		acc[l] = 1
	}
	i := 0
	for ; i+lanes <= len(arr); i += lanes {
		for l := 0; l < lanes; l++ {
			acc[l] *= arr[i+l]
		}
	}
	total := int64(1)
	for _, a := range acc {
		total *= a
	}
	for ; i < len(arr); i++ {
		total *= arr[i]
	}
	return total
}

// ReduceMinInt/ReduceMaxInt report ok=false for an empty array,
// mirroring the Rust Option<i64> return.
func ReduceMinInt(arr []int64) (int64, bool) {
	if len(arr) == 0 {
		return 0, false
	}
	m := arr[0]
	for _, v := range arr[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

func ReduceMaxInt(arr []int64) (int64, bool) {
	if len(arr) == 0 {
		return 0, false
	}
	m := arr[0]
	for _, v := range arr[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// FilterInt keeps elements satisfying op against threshold, ported
// from simd.rs's filter_gt_int/filter_lt_int/filter_eq_int.
func FilterInt(op SimdOp, arr []int64, threshold int64) []int64 {
	out := make([]int64, 0, len(arr))
	for _, v := range arr {
		keep := false
		switch op {
		case FilterGtInt:
			keep = v > threshold
		case FilterLtInt:
			keep = v < threshold
		case FilterEqInt:
			keep = v == threshold
		}
		if keep {
			out = append(out, v)
		}
	}
	return out
}

// FusedMapReduceSumInt computes sum(arr[i]*mulConst) in one pass,
// ported from simd.rs's fused_map_reduce_sum_int — avoids
// materializing the intermediate mapped array.
func FusedMapReduceSumInt(arr []int64, mulConst int64) int64 {
	lanes := SimdLaneWidth()
	acc := make([]int64, lanes)
	i := 0
	for ; i+lanes <= len(arr); i += lanes {
		for l := 0; l < lanes; l++ {
			acc[l] += arr[i+l] * mulConst
		}
	}
	var total int64
	for _, a := range acc {
		total += a
	}
	for ; i < len(arr); i++ {
		total += arr[i] * mulConst
	}
	return total
}

// FusedFilterReduceSumInt computes sum of elements exceeding
// threshold in one pass, ported from simd.rs's
// fused_filter_reduce_sum_int.
func FusedFilterReduceSumInt(arr []int64, threshold int64) int64 {
	var total int64
	for _, v := range arr {
		if v > threshold {
			total += v
		}
	}
	return total
}

// MapMulFloat/ReduceSumFloat mirror the int versions for f64 arrays,
// ported from simd.rs's float section.
func MapMulFloat(arr []float64, constant float64) []float64 {
	out := make([]float64, len(arr))
	for i, v := range arr {
		out[i] = v * constant
	}
	return out
}

func ReduceSumFloat(arr []float64) float64 {
	lanes := SimdLaneWidth()
	acc := make([]float64, lanes)
	i := 0
	for ; i+lanes <= len(arr); i += lanes {
		for l := 0; l < lanes; l++ {
			acc[l] += arr[i+l]
		}
	}
	var total float64
	for _, a := range acc {
		total += a
	}
	for ; i < len(arr); i++ {
		total += arr[i]
	}
	return total
}
