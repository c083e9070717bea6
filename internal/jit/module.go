package jit

import (
	"fmt"
	"sync"

	"github.com/vaislang/vais/internal/ir"
	"github.com/vaislang/vais/internal/metrics"
)

// compiledEntry is what CompileFunction caches: the function itself
// (the "compiled code" is really the tier-specialized execInt/
// execFloat path, selected by tier at call time) and its tier tag.
type compiledEntry struct {
	fn   *ir.CompiledFunction
	tier Tier
}

// Module is the compiled-function cache and tier-up engine, exposing
// CompileFunction(Int/Float), CompileFunctionsBatch, CallInt, CallFloat,
// CanJIT, and GetCompiledEntry, and satisfying
// internal/vm's JITEngine interface so a Machine can tier up into it.
// Recompiling a name replaces its cache entry atomically under mu;
// CompileFunctionsBatch additionally honors a
// single-writer define/finalize discipline by staging a whole
// batch before publishing it in one locked swap.
type Module struct {
	mu       sync.RWMutex
	compiled map[string]*compiledEntry
	osr      *OsrManager
}

func NewModule() *Module {
	return &Module{
		compiled: make(map[string]*compiledEntry),
		osr:      NewOsrManager(DefaultOSRThreshold),
	}
}

// CanJIT implements vm.JITEngine.
func (m *Module) CanJIT(fn *ir.CompiledFunction) bool {
	return CanJIT(fn, AnalyzeTier(fn))
}

// CompileFunction implements vm.JITEngine.
func (m *Module) CompileFunction(fn *ir.CompiledFunction) error {
	tier := AnalyzeTier(fn)
	if !CanJIT(fn, tier) {
		return fmt.Errorf("jit: %s: unsupported for tiered compilation, bailing to VM", fn.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compiled[fn.Name] = &compiledEntry{fn: fn, tier: tier}
	metrics.JITCompiles.Inc()
	return nil
}

// CompileFunctionsBatch compiles every function in fns, publishing all
// successes in a single locked swap rather than one per function:
// batch mode collects definitions then finalizes once.
// A function that fails its own CanJIT check is skipped rather than
// failing the whole batch, consistent with per-function conservative
// bail-out elsewhere in this package.
func (m *Module) CompileFunctionsBatch(fns []*ir.CompiledFunction) {
	staged := make(map[string]*compiledEntry, len(fns))
	for _, fn := range fns {
		tier := AnalyzeTier(fn)
		if !CanJIT(fn, tier) {
			continue
		}
		staged[fn.Name] = &compiledEntry{fn: fn, tier: tier}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, entry := range staged {
		m.compiled[name] = entry
	}
	metrics.JITCompiles.Add(float64(len(staged)))
}

// OSRStats reports one line per loop header this module has ever seen
// an OSR offer for, for diagnostics/CLI reporting.
func (m *Module) OSRStats() []string {
	return m.osr.Stats()
}

// TotalOSRTransitions reports how many loop headers have actually
// transitioned to compiled execution, across every function this
// module has seen — used by callers (and tests) that need to confirm
// OSR actually engaged rather than just that the final result matched.
func (m *Module) TotalOSRTransitions() uint64 {
	return m.osr.TotalTransitions()
}

func (m *Module) lookup(name string) (*compiledEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.compiled[name]
	return e, ok
}

// GetCompiledEntry is the closure-compilation stand-in for a raw code
// pointer: Go has no such pointer to publish, so the
// opaque handle callers get back is the cached entry itself.
func (m *Module) GetCompiledEntry(name string) (any, bool) {
	return m.lookup(name)
}

// CallInt invokes the IntOnly-tier compiled function name with args.
func (m *Module) CallInt(name string, args []int64) (int64, error) {
	entry, ok := m.lookup(name)
	if !ok {
		return 0, fmt.Errorf("jit: %s: not compiled", name)
	}
	if entry.tier != IntOnly {
		return 0, fmt.Errorf("jit: %s: not compiled as IntOnly (tier is %s)", name, entry.tier)
	}
	if len(args) != len(entry.fn.Params) {
		return 0, fmt.Errorf("jit: %s: expected %d argument(s), got %d", name, len(entry.fn.Params), len(args))
	}
	locals := make(map[string]int64, len(entry.fn.Params))
	for i, p := range entry.fn.Params {
		locals[p] = args[i]
	}
	return execInt(entry.fn, 0, locals, nil)
}

// CallFloat invokes the FloatOnly-tier compiled function name with args.
func (m *Module) CallFloat(name string, args []float64) (float64, error) {
	entry, ok := m.lookup(name)
	if !ok {
		return 0, fmt.Errorf("jit: %s: not compiled", name)
	}
	if entry.tier != FloatOnly {
		return 0, fmt.Errorf("jit: %s: not compiled as FloatOnly (tier is %s)", name, entry.tier)
	}
	if len(args) != len(entry.fn.Params) {
		return 0, fmt.Errorf("jit: %s: expected %d argument(s), got %d", name, len(entry.fn.Params), len(args))
	}
	locals := make(map[string]float64, len(entry.fn.Params))
	for i, p := range entry.fn.Params {
		locals[p] = args[i]
	}
	return execFloat(entry.fn, 0, locals, nil)
}

// CallCompiled implements vm.JITEngine, dispatching to the tier the
// function was compiled under and converting back to ir.Value.
func (m *Module) CallCompiled(name string, args []ir.Value) (ir.Value, bool, error) {
	entry, ok := m.lookup(name)
	if !ok {
		return ir.UnitValue(), false, nil
	}
	switch entry.tier {
	case IntOnly:
		raw := make([]int64, len(args))
		for i, a := range args {
			raw[i] = toIntRaw(a)
		}
		result, err := m.CallInt(name, raw)
		if err != nil {
			return ir.UnitValue(), true, err
		}
		return ir.IntValue(result), true, nil
	case FloatOnly:
		raw := make([]float64, len(args))
		for i, a := range args {
			raw[i] = toFloatRaw(a)
		}
		result, err := m.CallFloat(name, raw)
		if err != nil {
			return ir.UnitValue(), true, err
		}
		return ir.FloatValue(result), true, nil
	default:
		// Generic tier has no specialized raw-call path in this port;
		// let the VM keep interpreting it directly.
		return ir.UnitValue(), false, nil
	}
}

// TryOSR implements vm.JITEngine, following the
// Continue/Compile/Jump decision states of on-stack replacement.
func (m *Module) TryOSR(fn *ir.CompiledFunction, header int, locals map[string]ir.Value, stack []ir.Value) (ir.Value, bool, error) {
	point := m.osr.PointFor(fn.Name, header)
	switch point.RecordIteration() {
	case OsrContinue:
		return ir.UnitValue(), false, nil

	case OsrCompile:
		tier := AnalyzeTier(fn)
		if !CanJIT(fn, tier) {
			return ir.UnitValue(), false, fmt.Errorf("jit: %s: cannot OSR-compile loop at %d, bailing to VM", fn.Name, header)
		}
		m.mu.Lock()
		m.compiled[fn.Name] = &compiledEntry{fn: fn, tier: tier}
		m.mu.Unlock()
		m.osr.CompleteTransition(point)

		// Build the handoff buffer for parity with the OSR
		// safety contract; our Go path below reads the typed
		// locals/stack directly rather than decoding it back out, since
		// there is no separate native entry stub to hand raw bytes to.
		_ = newOsrBufferFromFrame(captureOsrFrame(locals, stack), fn.Params)

		return m.resumeFromHeader(fn, tier, header, locals, stack)

	case OsrJump:
		entry, ok := m.lookup(fn.Name)
		if !ok {
			return ir.UnitValue(), false, nil
		}
		return m.resumeFromHeader(fn, entry.tier, header, locals, stack)

	default:
		return ir.UnitValue(), false, nil
	}
}

// resumeFromHeader re-enters fn's tier-specialized execution loop at
// the loop header pc with the interpreter's live state, instead of the
// interpreter resuming that frame: once a transition has happened the
// interpreter never resumes that frame.
func (m *Module) resumeFromHeader(fn *ir.CompiledFunction, tier Tier, header int, locals map[string]ir.Value, stack []ir.Value) (ir.Value, bool, error) {
	switch tier {
	case IntOnly:
		rawLocals := make(map[string]int64, len(locals))
		for k, v := range locals {
			rawLocals[k] = toIntRaw(v)
		}
		rawStack := make([]int64, len(stack))
		for i, v := range stack {
			rawStack[i] = toIntRaw(v)
		}
		result, err := execInt(fn, header, rawLocals, rawStack)
		if err != nil {
			return ir.UnitValue(), false, err
		}
		return ir.IntValue(result), true, nil

	case FloatOnly:
		rawLocals := make(map[string]float64, len(locals))
		for k, v := range locals {
			rawLocals[k] = toFloatRaw(v)
		}
		rawStack := make([]float64, len(stack))
		for i, v := range stack {
			rawStack[i] = toFloatRaw(v)
		}
		result, err := execFloat(fn, header, rawLocals, rawStack)
		if err != nil {
			return ir.UnitValue(), false, err
		}
		return ir.FloatValue(result), true, nil

	default:
		return ir.UnitValue(), false, fmt.Errorf("jit: %s: OSR resume is not supported for Generic tier", fn.Name)
	}
}

func toIntRaw(v ir.Value) int64 {
	switch v.Kind {
	case ir.KindInt:
		return v.Int
	case ir.KindBool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toFloatRaw(v ir.Value) float64 {
	if v.Kind == ir.KindFloat {
		return v.Float
	}
	return 0
}

// execInt is the IntOnly tier's specialized execution loop: the same
// control-flow shape as internal/vm's step, but over an unboxed
// []int64 stack and map[string]int64 locals instead of ir.Value's
// tagged union — the actual "compiled code" this port produces in
// place of native machine code. Booleans are represented as 0/1.
func execInt(fn *ir.CompiledFunction, startPC int, locals map[string]int64, startStack []int64) (int64, error) {
	stack := append([]int64(nil), startStack...)
	pc := startPC

	pop := func() (int64, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("jit: %s: stack underflow at pc=%d", fn.Name, pc)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	for {
		if pc >= len(fn.Instructions) {
			return 0, fmt.Errorf("jit: %s: fell off the end of the instruction stream", fn.Name)
		}
		ins := fn.Instructions[pc]
		switch ins.Op {
		case ir.OpConst:
			switch ins.Const.Kind {
			case ir.KindInt:
				stack = append(stack, ins.Const.Int)
			case ir.KindBool:
				if ins.Const.Bool {
					stack = append(stack, 1)
				} else {
					stack = append(stack, 0)
				}
			case ir.KindUnit:
				stack = append(stack, 0)
			default:
				return 0, fmt.Errorf("jit: %s: non-integer constant reached IntOnly tier", fn.Name)
			}
			pc++

		case ir.OpLoad:
			v, ok := locals[ins.Name]
			if !ok {
				return 0, fmt.Errorf("jit: %s: undefined local %q", fn.Name, ins.Name)
			}
			stack = append(stack, v)
			pc++

		case ir.OpStore:
			v, err := pop()
			if err != nil {
				return 0, err
			}
			locals[ins.Name] = v
			pc++

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
			rhs, err := pop()
			if err != nil {
				return 0, err
			}
			lhs, err := pop()
			if err != nil {
				return 0, err
			}
			if (ins.Op == ir.OpDiv || ins.Op == ir.OpMod) && rhs == 0 {
				return 0, fmt.Errorf("jit: %s: integer division by zero", fn.Name)
			}
			switch ins.Op {
			case ir.OpAdd:
				stack = append(stack, lhs+rhs)
			case ir.OpSub:
				stack = append(stack, lhs-rhs)
			case ir.OpMul:
				stack = append(stack, lhs*rhs)
			case ir.OpDiv:
				stack = append(stack, lhs/rhs)
			case ir.OpMod:
				stack = append(stack, lhs%rhs)
			}
			pc++

		case ir.OpNeg:
			v, err := pop()
			if err != nil {
				return 0, err
			}
			stack = append(stack, -v)
			pc++

		case ir.OpLt, ir.OpGt, ir.OpLte, ir.OpGte, ir.OpEq, ir.OpNeq:
			rhs, err := pop()
			if err != nil {
				return 0, err
			}
			lhs, err := pop()
			if err != nil {
				return 0, err
			}
			var result bool
			switch ins.Op {
			case ir.OpLt:
				result = lhs < rhs
			case ir.OpGt:
				result = lhs > rhs
			case ir.OpLte:
				result = lhs <= rhs
			case ir.OpGte:
				result = lhs >= rhs
			case ir.OpEq:
				result = lhs == rhs
			case ir.OpNeq:
				result = lhs != rhs
			}
			if result {
				stack = append(stack, 1)
			} else {
				stack = append(stack, 0)
			}
			pc++

		case ir.OpDup:
			if len(stack) == 0 {
				return 0, fmt.Errorf("jit: %s: Dup on empty stack", fn.Name)
			}
			stack = append(stack, stack[len(stack)-1])
			pc++

		case ir.OpPop:
			if _, err := pop(); err != nil {
				return 0, err
			}
			pc++

		case ir.OpJump:
			pc = ins.Offset

		case ir.OpJumpIfNot:
			cond, err := pop()
			if err != nil {
				return 0, err
			}
			if cond == 0 {
				pc = ins.Offset
			} else {
				pc++
			}

		case ir.OpSelfCall:
			if len(stack) < ins.Argc {
				return 0, fmt.Errorf("jit: %s: missing call arguments", fn.Name)
			}
			args := append([]int64(nil), stack[len(stack)-ins.Argc:]...)
			stack = stack[:len(stack)-ins.Argc]
			newLocals := make(map[string]int64, len(fn.Params))
			for i, p := range fn.Params {
				newLocals[p] = args[i]
			}
			result, err := execInt(fn, 0, newLocals, nil)
			if err != nil {
				return 0, err
			}
			stack = append(stack, result)
			pc++

		case ir.OpTailSelfCall:
			if len(stack) < ins.Argc {
				return 0, fmt.Errorf("jit: %s: missing tail-call arguments", fn.Name)
			}
			args := stack[len(stack)-ins.Argc:]
			for i, p := range fn.Params {
				locals[p] = args[i]
			}
			stack = stack[:0]
			pc = 0

		case ir.OpReturn:
			return pop()

		case ir.OpCall:
			return 0, fmt.Errorf("jit: %s: cross-function Call is not supported by this tier, should have bailed at compile time", fn.Name)

		default:
			return 0, fmt.Errorf("jit: %s: unknown opcode %v", fn.Name, ins.Op)
		}
	}
}

// execFloat mirrors execInt for the FloatOnly tier. A FloatOnly
// function's stack is entirely float64, so comparison results are
// represented as 0.0/1.0 to stay on the same stack type.
func execFloat(fn *ir.CompiledFunction, startPC int, locals map[string]float64, startStack []float64) (float64, error) {
	stack := append([]float64(nil), startStack...)
	pc := startPC

	pop := func() (float64, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("jit: %s: stack underflow at pc=%d", fn.Name, pc)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	for {
		if pc >= len(fn.Instructions) {
			return 0, fmt.Errorf("jit: %s: fell off the end of the instruction stream", fn.Name)
		}
		ins := fn.Instructions[pc]
		switch ins.Op {
		case ir.OpConst:
			switch ins.Const.Kind {
			case ir.KindFloat:
				stack = append(stack, ins.Const.Float)
			case ir.KindUnit:
				stack = append(stack, 0)
			default:
				return 0, fmt.Errorf("jit: %s: non-float constant reached FloatOnly tier", fn.Name)
			}
			pc++

		case ir.OpLoad:
			v, ok := locals[ins.Name]
			if !ok {
				return 0, fmt.Errorf("jit: %s: undefined local %q", fn.Name, ins.Name)
			}
			stack = append(stack, v)
			pc++

		case ir.OpStore:
			v, err := pop()
			if err != nil {
				return 0, err
			}
			locals[ins.Name] = v
			pc++

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
			rhs, err := pop()
			if err != nil {
				return 0, err
			}
			lhs, err := pop()
			if err != nil {
				return 0, err
			}
			switch ins.Op {
			case ir.OpAdd:
				stack = append(stack, lhs+rhs)
			case ir.OpSub:
				stack = append(stack, lhs-rhs)
			case ir.OpMul:
				stack = append(stack, lhs*rhs)
			case ir.OpDiv:
				stack = append(stack, lhs/rhs)
			}
			pc++

		case ir.OpMod:
			return 0, fmt.Errorf("jit: %s: Mod is not defined over float operands", fn.Name)

		case ir.OpNeg:
			v, err := pop()
			if err != nil {
				return 0, err
			}
			stack = append(stack, -v)
			pc++

		case ir.OpLt, ir.OpGt, ir.OpLte, ir.OpGte, ir.OpEq, ir.OpNeq:
			rhs, err := pop()
			if err != nil {
				return 0, err
			}
			lhs, err := pop()
			if err != nil {
				return 0, err
			}
			var result bool
			switch ins.Op {
			case ir.OpLt:
				result = lhs < rhs
			case ir.OpGt:
				result = lhs > rhs
			case ir.OpLte:
				result = lhs <= rhs
			case ir.OpGte:
				result = lhs >= rhs
			case ir.OpEq:
				result = lhs == rhs
			case ir.OpNeq:
				result = lhs != rhs
			}
			if result {
				stack = append(stack, 1)
			} else {
				stack = append(stack, 0)
			}
			pc++

		case ir.OpDup:
			if len(stack) == 0 {
				return 0, fmt.Errorf("jit: %s: Dup on empty stack", fn.Name)
			}
			stack = append(stack, stack[len(stack)-1])
			pc++

		case ir.OpPop:
			if _, err := pop(); err != nil {
				return 0, err
			}
			pc++

		case ir.OpJump:
			pc = ins.Offset

		case ir.OpJumpIfNot:
			cond, err := pop()
			if err != nil {
				return 0, err
			}
			if cond == 0 {
				pc = ins.Offset
			} else {
				pc++
			}

		case ir.OpSelfCall:
			if len(stack) < ins.Argc {
				return 0, fmt.Errorf("jit: %s: missing call arguments", fn.Name)
			}
			args := append([]float64(nil), stack[len(stack)-ins.Argc:]...)
			stack = stack[:len(stack)-ins.Argc]
			newLocals := make(map[string]float64, len(fn.Params))
			for i, p := range fn.Params {
				newLocals[p] = args[i]
			}
			result, err := execFloat(fn, 0, newLocals, nil)
			if err != nil {
				return 0, err
			}
			stack = append(stack, result)
			pc++

		case ir.OpTailSelfCall:
			if len(stack) < ins.Argc {
				return 0, fmt.Errorf("jit: %s: missing tail-call arguments", fn.Name)
			}
			args := stack[len(stack)-ins.Argc:]
			for i, p := range fn.Params {
				locals[p] = args[i]
			}
			stack = stack[:0]
			pc = 0

		case ir.OpReturn:
			return pop()

		case ir.OpCall:
			return 0, fmt.Errorf("jit: %s: cross-function Call is not supported by this tier, should have bailed at compile time", fn.Name)

		default:
			return 0, fmt.Errorf("jit: %s: unknown opcode %v", fn.Name, ins.Op)
		}
	}
}
