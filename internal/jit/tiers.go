// Package jit is the optional tier-up compiler for internal/ir's
// bytecode. Its shape is grounded directly on the operation list it
// compiles and on original_source's vais-jit crate (osr.rs, simd.rs)
// for the parts that are a port rather than a fresh design.
//
// A genuine native-code backend (Cranelift, or hand-emitted
// machine code) is out of reach for a pure-Go port without cgo or
// platform assembly, which this module deliberately avoids. Instead,
// "compiling" a function specializes its execution to an unboxed,
// tier-specific Go closure (raw []int64/[]float64 stack and locals
// instead of ir.Value's tagged union) — a real, different, and faster
// code path than internal/vm's general interpreter, while preserving
// the interpreter's observable result exactly: CallInt/CallFloat must
// agree with vm.ExecuteFunction on every input. Every place
// this stands in for true native codegen is called out in DESIGN.md.
package jit

import "github.com/vaislang/vais/internal/ir"

// Tier tags which calling convention a CompiledFunction qualifies for.
type Tier int

const (
	// IntOnly functions touch only integer/bool constants, locals,
	// arithmetic, comparisons, and control flow. ABI: (*i64, usize) -> i64.
	IntOnly Tier = iota
	// FloatOnly functions touch only float constants under the same
	// restrictions. ABI: (*f64, usize) -> f64.
	FloatOnly
	// Generic functions carry both int/bool and float constants. This
	// package has no execution path for them: CallCompiled declines them
	// so the VM keeps interpreting them, and OSR resume reports an error.
	// A function with no constants at all is IntOnly (see AnalyzeTier).
	Generic
)

func (t Tier) String() string {
	switch t {
	case IntOnly:
		return "IntOnly"
	case FloatOnly:
		return "FloatOnly"
	default:
		return "Generic"
	}
}

// AnalyzeTier inspects fn's constant pool to classify it. This is a
// conservative, instruction-only analysis — it has no access to the type checker's inferred
// parameter types, only to what the IR's Const instructions reveal, so
// a function with no Const instructions at all (e.g. one that just
// forwards arguments to another call) defaults to IntOnly rather than
// Generic.
func AnalyzeTier(fn *ir.CompiledFunction) Tier {
	hasFloat, hasInt := false, false
	for _, ins := range fn.Instructions {
		if ins.Op != ir.OpConst {
			continue
		}
		switch ins.Const.Kind {
		case ir.KindFloat:
			hasFloat = true
		case ir.KindInt, ir.KindBool:
			hasInt = true
		}
	}
	switch {
	case hasFloat && hasInt:
		return Generic
	case hasFloat:
		return FloatOnly
	default:
		return IntOnly
	}
}

// CanJIT reports whether fn can be compiled at all under tier. Calls
// to other named functions (OpCall) require coordinating two
// potentially different ABI tiers across a function boundary — real
// Cranelift-style codegen handles this with trampolines; this port
// does not attempt it, and conservatively bails to the VM instead
// for any unsupported opcode. Self-calls
// (SelfCall/TailSelfCall) stay within one ABI and are always fine.
// For the Generic tier CanJIT reports true without inspecting fn,
// though such functions still run in the VM (see Generic).
func CanJIT(fn *ir.CompiledFunction, tier Tier) bool {
	if tier == Generic {
		return true
	}
	for _, ins := range fn.Instructions {
		if ins.Op == ir.OpCall {
			return false
		}
	}
	return true
}
