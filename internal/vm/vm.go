// Package vm is the reference interpreter for internal/ir's stack
// bytecode. It is the correctness oracle the JIT is checked against:
// every JIT-compiled function must agree with what this package
// computes by walking the IR directly.
//
// The dispatch loop is a big switch over opcode kind plus an
// environment of named locals, retargeted from tree-walking a typed
// AST to stepping a flat instruction stream with an explicit operand
// stack and program counter.
package vm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vaislang/vais/internal/ir"
)

// RuntimeError is returned for failures that can only be detected at
// execution time: arity mismatches, unknown names, division by zero,
// operand-kind mismatches, and stack/ir malformation. Type-checking is
// expected to have ruled out most of these for well-typed programs;
// this error exists for the few that survive past it (div-by-zero) and
// as a defense against a malformed CompiledFunction reaching the VM
// directly (e.g. from a test or a future backend).
type RuntimeError struct {
	Function string
	Detail   string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("vm: %s: %s", e.Function, e.Detail)
}

func runtimeErr(fn string, format string, args ...any) error {
	return &RuntimeError{Function: fn, Detail: fmt.Sprintf(format, args...)}
}

// JITEngine is the tier-up collaborator the VM calls into once a
// function (or loop) has run often enough to be worth compiling. It is
// satisfied by internal/jit's Module; a Machine with no JITEngine set
// behaves as a pure interpreter and never tiers up. Kept as an
// interface here (rather than importing internal/jit) so the two
// packages stay decoupled — internal/query is the only package that
// needs to see both and wire them together.
type JITEngine interface {
	// CanJIT reports whether fn's instructions fall entirely within a
	// supported signature tier.
	CanJIT(fn *ir.CompiledFunction) bool

	// CompileFunction compiles fn and makes it available to
	// CallCompiled under fn.Name. Recompilation replaces the cached
	// entry point atomically.
	CompileFunction(fn *ir.CompiledFunction) error

	// CallCompiled invokes a previously compiled function. ok is false
	// if name has not been compiled (or compilation is unavailable),
	// in which case the VM falls back to interpreting it.
	CallCompiled(name string, args []ir.Value) (result ir.Value, ok bool, err error)

	// TryOSR is polled when a loop header's iteration counter crosses
	// the OSR threshold. If transitioned is true, result is the
	// function's final return value and the interpreter must not
	// resume the frame that called it: once transitioned, the
	// interpreter never resumes that frame.
	TryOSR(fn *ir.CompiledFunction, header int, locals map[string]ir.Value, stack []ir.Value) (result ir.Value, transitioned bool, err error)
}

// HostCall is the decoupling boundary for dispatching a call to a name
// that isn't a compiled Vais function out to the runtime effect system
// (internal/effects) instead — e.g. "Clock.now", "IO.printInt". Kept as
// an interface here for the same reason as JITEngine: the VM shouldn't
// import internal/effects directly, and internal/query is where both
// get wired together. handled is false for any name the host doesn't
// recognize, in which case the Machine reports its usual "undefined
// function" error.
type HostCall interface {
	Call(name string, args []ir.Value) (result ir.Value, handled bool, err error)
}

const (
	defaultCallThreshold = 1000
	defaultOSRThreshold  = 100
)

// Machine is the stateful interpreter engine: it owns the function
// table plus the per-function call counters and per-loop-header OSR
// counters that drive tier-up decisions across repeated calls. A
// single ExecuteFunction call cannot observe tier-up by itself — the
// counters need to survive across calls, which is why internal/query
// holds a long-lived Machine rather than constructing one per query.
type Machine struct {
	mu    sync.RWMutex
	funcs map[string]*ir.CompiledFunction

	callCounts map[string]*uint64
	osrCounts  map[osrKey]*uint64
	tiered     map[string]bool

	jit  JITEngine
	host HostCall

	CallThreshold uint64
	OSRThreshold  uint64
}

type osrKey struct {
	fn     string
	header int
}

// NewMachine builds a Machine over a fixed function table. funcs is
// typically the output of ir.Lower for one module; callers that link
// multiple modules together pass the concatenation.
func NewMachine(funcs []*ir.CompiledFunction) *Machine {
	m := &Machine{
		funcs:         make(map[string]*ir.CompiledFunction, len(funcs)),
		callCounts:    make(map[string]*uint64),
		osrCounts:     make(map[osrKey]*uint64),
		tiered:        make(map[string]bool),
		CallThreshold: defaultCallThreshold,
		OSRThreshold:  defaultOSRThreshold,
	}
	for _, fn := range funcs {
		m.funcs[fn.Name] = fn
		var c uint64
		m.callCounts[fn.Name] = &c
	}
	return m
}

// SetJITEngine wires a tier-up collaborator in. Passing nil disables
// tier-up (pure interpretation).
func (m *Machine) SetJITEngine(j JITEngine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jit = j
}

// SetHostCall wires a runtime effect dispatcher in. Passing nil means
// calls to names outside the function table always fail with "undefined
// function", the original behavior.
func (m *Machine) SetHostCall(h HostCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.host = h
}

// ExecuteFunction runs entry with args over funcs, a pure
// execute_function(funcs, entry_name, args) -> Value.
// It builds a throwaway Machine, so repeated calls never tier up;
// callers that want JIT tier-up across calls should build a Machine
// once via NewMachine and call Call repeatedly.
func ExecuteFunction(funcs []*ir.CompiledFunction, entryName string, args []ir.Value) (ir.Value, error) {
	m := NewMachine(funcs)
	return m.Call(entryName, args)
}

// Call invokes a named function, applying call-count tier-up
// accounting before interpreting it.
func (m *Machine) Call(name string, args []ir.Value) (ir.Value, error) {
	m.mu.RLock()
	fn, ok := m.funcs[name]
	host := m.host
	m.mu.RUnlock()
	if !ok {
		if host != nil {
			if result, handled, err := host.Call(name, args); handled {
				return result, err
			}
		}
		return ir.UnitValue(), runtimeErr(name, "call to undefined function %q", name)
	}

	if count := m.bumpCallCount(name); count == m.threshold() && m.jit != nil {
		m.maybeTierUp(fn)
	}

	if m.jit != nil {
		if result, ok, err := m.jit.CallCompiled(name, args); ok {
			return result, err
		}
	}

	return m.interpret(fn, args)
}

func (m *Machine) threshold() uint64 {
	if m.CallThreshold == 0 {
		return defaultCallThreshold
	}
	return m.CallThreshold
}

func (m *Machine) osrThreshold() uint64 {
	if m.OSRThreshold == 0 {
		return defaultOSRThreshold
	}
	return m.OSRThreshold
}

func (m *Machine) bumpCallCount(name string) uint64 {
	m.mu.Lock()
	c, ok := m.callCounts[name]
	if !ok {
		var fresh uint64
		c = &fresh
		m.callCounts[name] = c
	}
	m.mu.Unlock()
	return atomic.AddUint64(c, 1)
}

func (m *Machine) maybeTierUp(fn *ir.CompiledFunction) {
	m.mu.Lock()
	if m.tiered[fn.Name] {
		m.mu.Unlock()
		return
	}
	m.tiered[fn.Name] = true
	jit := m.jit
	m.mu.Unlock()

	if jit == nil || !jit.CanJIT(fn) {
		return
	}
	// Compilation failures are swallowed here: JIT errors are
	// non-fatal, with the VM kept as fallback.
	_ = jit.CompileFunction(fn)
}

// frame holds one activation of the interpreter: its operand stack,
// its named locals, and the program counter into fn.Instructions.
type frame struct {
	fn     *ir.CompiledFunction
	locals map[string]ir.Value
	stack  []ir.Value
	pc     int
}

func (f *frame) push(v ir.Value) { f.stack = append(f.stack, v) }

func (f *frame) pop(fnName string) (ir.Value, error) {
	if len(f.stack) == 0 {
		return ir.UnitValue(), runtimeErr(fnName, "operand stack underflow at pc=%d", f.pc)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (m *Machine) interpret(fn *ir.CompiledFunction, args []ir.Value) (ir.Value, error) {
	if len(args) != len(fn.Params) {
		return ir.UnitValue(), runtimeErr(fn.Name, "expected %d argument(s), got %d", len(fn.Params), len(args))
	}

	f := &frame{fn: fn, locals: make(map[string]ir.Value, fn.LocalCount)}
	for i, p := range fn.Params {
		f.locals[p] = args[i]
	}

	for {
		result, transfer, err := m.step(f)
		if err != nil {
			return ir.UnitValue(), err
		}
		switch transfer {
		case transferReturn:
			return result, nil
		case transferTailCall:
			// Reuse this Go stack frame's loop: f was already reset by
			// step for TailSelfCall, so just keep going.
			continue
		default:
			continue
		}
	}
}

type transferKind int

const (
	transferNone transferKind = iota
	transferReturn
	transferTailCall
)

// step executes instructions starting at f.pc until the frame returns
// a value, tail-calls (handled in place, no Go recursion), or an error
// occurs. It advances f.pc itself to let jump instructions branch.
func (m *Machine) step(f *frame) (ir.Value, transferKind, error) {
	for f.pc < len(f.fn.Instructions) {
		ins := f.fn.Instructions[f.pc]
		switch ins.Op {
		case ir.OpConst:
			f.push(ins.Const)
			f.pc++

		case ir.OpLoad:
			v, ok := f.locals[ins.Name]
			if !ok {
				return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "load of undefined local %q", ins.Name)
			}
			f.push(v)
			f.pc++

		case ir.OpStore:
			v, err := f.pop(f.fn.Name)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			f.locals[ins.Name] = v
			f.pc++

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
			if err := m.binArith(f, ins.Op); err != nil {
				return ir.UnitValue(), transferNone, err
			}
			f.pc++

		case ir.OpNeg:
			v, err := f.pop(f.fn.Name)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			switch v.Kind {
			case ir.KindInt:
				f.push(ir.IntValue(-v.Int))
			case ir.KindFloat:
				f.push(ir.FloatValue(-v.Float))
			default:
				return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "Neg on non-numeric value %s", v)
			}
			f.pc++

		case ir.OpLt, ir.OpGt, ir.OpLte, ir.OpGte, ir.OpEq, ir.OpNeq:
			if err := m.binCompare(f, ins.Op); err != nil {
				return ir.UnitValue(), transferNone, err
			}
			f.pc++

		case ir.OpDup:
			if len(f.stack) == 0 {
				return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "Dup on empty stack at pc=%d", f.pc)
			}
			f.push(f.stack[len(f.stack)-1])
			f.pc++

		case ir.OpPop:
			if _, err := f.pop(f.fn.Name); err != nil {
				return ir.UnitValue(), transferNone, err
			}
			f.pc++

		case ir.OpJump:
			result, transitioned, err := m.trackBackEdge(f, ins.Offset)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			if transitioned {
				return result, transferReturn, nil
			}
			f.pc = ins.Offset

		case ir.OpJumpIfNot:
			cond, err := f.pop(f.fn.Name)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			if cond.Kind != ir.KindBool {
				return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "JumpIfNot on non-bool value %s", cond)
			}
			if !cond.Bool {
				result, transitioned, err := m.trackBackEdge(f, ins.Offset)
				if err != nil {
					return ir.UnitValue(), transferNone, err
				}
				if transitioned {
					return result, transferReturn, nil
				}
				f.pc = ins.Offset
			} else {
				f.pc++
			}

		case ir.OpCall, ir.OpSelfCall:
			args, err := popArgs(f, ins.Argc)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			name := ins.Name
			if ins.Op == ir.OpSelfCall {
				name = f.fn.Name
			}
			result, err := m.Call(name, args)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			f.push(result)
			f.pc++

		case ir.OpTailSelfCall:
			args, err := popArgs(f, ins.Argc)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			if len(args) != len(f.fn.Params) {
				return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "tail self-call argument count mismatch")
			}
			for i, p := range f.fn.Params {
				f.locals[p] = args[i]
			}
			f.stack = f.stack[:0]
			f.pc = 0
			return ir.UnitValue(), transferTailCall, nil

		case ir.OpReturn:
			v, err := f.pop(f.fn.Name)
			if err != nil {
				return ir.UnitValue(), transferNone, err
			}
			return v, transferReturn, nil

		default:
			return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "unknown opcode %v", ins.Op)
		}
	}
	return ir.UnitValue(), transferNone, runtimeErr(f.fn.Name, "fell off the end of the instruction stream without a Return")
}

// trackBackEdge treats any jump to a non-later instruction as a loop
// back edge and bumps that loop header's OSR counter.
// When the threshold is crossed, the JIT engine (if any) is offered
// the chance to transition — and since our runtime's "OSR" is a
// simulated in-process tier-up rather than true native-code control
// transfer, a successful transition's result is threaded straight back
// as this frame's final value by step's caller.
func (m *Machine) trackBackEdge(f *frame, target int) (ir.Value, bool, error) {
	if target > f.pc {
		return ir.UnitValue(), false, nil
	}
	if m.jit == nil {
		return ir.UnitValue(), false, nil
	}
	key := osrKey{fn: f.fn.Name, header: target}
	m.mu.Lock()
	c, ok := m.osrCounts[key]
	if !ok {
		var fresh uint64
		c = &fresh
		m.osrCounts[key] = c
	}
	m.mu.Unlock()
	count := atomic.AddUint64(c, 1)
	if count < m.osrThreshold() {
		return ir.UnitValue(), false, nil
	}
	// Crossed: offer the engine a shot at OSR. A successful transition
	// means the JIT ran this loop (and the rest of the function) to
	// completion itself, so this frame must not be resumed — the
	// result is handed straight back to step's caller as the frame's
	// final value.
	result, transitioned, err := m.jit.TryOSR(f.fn, target, f.locals, f.stack)
	if err != nil {
		return ir.UnitValue(), false, nil
	}
	if !transitioned {
		return ir.UnitValue(), false, nil
	}
	return result, true, nil
}

func popArgs(f *frame, argc int) ([]ir.Value, error) {
	if len(f.stack) < argc {
		return nil, runtimeErr(f.fn.Name, "expected %d argument(s) on stack, found %d", argc, len(f.stack))
	}
	args := make([]ir.Value, argc)
	copy(args, f.stack[len(f.stack)-argc:])
	f.stack = f.stack[:len(f.stack)-argc]
	return args, nil
}

func (m *Machine) binArith(f *frame, op ir.Op) error {
	rhs, err := f.pop(f.fn.Name)
	if err != nil {
		return err
	}
	lhs, err := f.pop(f.fn.Name)
	if err != nil {
		return err
	}
	if lhs.Kind == ir.KindInt && rhs.Kind == ir.KindInt {
		if (op == ir.OpDiv || op == ir.OpMod) && rhs.Int == 0 {
			return runtimeErr(f.fn.Name, "integer division by zero")
		}
		switch op {
		case ir.OpAdd:
			f.push(ir.IntValue(lhs.Int + rhs.Int))
		case ir.OpSub:
			f.push(ir.IntValue(lhs.Int - rhs.Int))
		case ir.OpMul:
			f.push(ir.IntValue(lhs.Int * rhs.Int))
		case ir.OpDiv:
			f.push(ir.IntValue(lhs.Int / rhs.Int))
		case ir.OpMod:
			f.push(ir.IntValue(lhs.Int % rhs.Int))
		}
		return nil
	}
	if lhs.Kind == ir.KindFloat && rhs.Kind == ir.KindFloat {
		if op == ir.OpMod {
			return runtimeErr(f.fn.Name, "Mod is not defined over float operands")
		}
		switch op {
		case ir.OpAdd:
			f.push(ir.FloatValue(lhs.Float + rhs.Float))
		case ir.OpSub:
			f.push(ir.FloatValue(lhs.Float - rhs.Float))
		case ir.OpMul:
			f.push(ir.FloatValue(lhs.Float * rhs.Float))
		case ir.OpDiv:
			f.push(ir.FloatValue(lhs.Float / rhs.Float))
		}
		return nil
	}
	return runtimeErr(f.fn.Name, "%s %s %s: operand kind mismatch", lhs, op, rhs)
}

func (m *Machine) binCompare(f *frame, op ir.Op) error {
	rhs, err := f.pop(f.fn.Name)
	if err != nil {
		return err
	}
	lhs, err := f.pop(f.fn.Name)
	if err != nil {
		return err
	}

	if op == ir.OpEq || op == ir.OpNeq {
		eq := valuesEqual(lhs, rhs)
		if op == ir.OpNeq {
			eq = !eq
		}
		f.push(ir.BoolValue(eq))
		return nil
	}

	var cmp int
	switch {
	case lhs.Kind == ir.KindInt && rhs.Kind == ir.KindInt:
		cmp = compareInt(lhs.Int, rhs.Int)
	case lhs.Kind == ir.KindFloat && rhs.Kind == ir.KindFloat:
		cmp = compareFloat(lhs.Float, rhs.Float)
	default:
		return runtimeErr(f.fn.Name, "%s and %s are not ordered", lhs, rhs)
	}

	var result bool
	switch op {
	case ir.OpLt:
		result = cmp < 0
	case ir.OpGt:
		result = cmp > 0
	case ir.OpLte:
		result = cmp <= 0
	case ir.OpGte:
		result = cmp >= 0
	}
	f.push(ir.BoolValue(result))
	return nil
}

func valuesEqual(a, b ir.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.KindInt:
		return a.Int == b.Int
	case ir.KindFloat:
		return a.Float == b.Float
	case ir.KindBool:
		return a.Bool == b.Bool
	default:
		return true // Unit == Unit
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
