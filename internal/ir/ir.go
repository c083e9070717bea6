// Package ir defines the flat stack-bytecode intermediate representation
// that sits between the type checker and the two execution backends
// (internal/vm, internal/jit). The instruction set is intentionally
// small: a CompiledFunction only ever touches integers, floats, bools,
// locals, and control-flow jumps, matching the JIT's IntOnly/FloatOnly
// tier analysis (internal/jit) — structs, arrays, strings, and bitwise
// ops are deliberately kept out of this instruction set and rejected by
// the lowerer with a LoweringError rather than given an ad-hoc encoding.
package ir

import "fmt"

// ValueKind tags a Value's active field, mirroring the 1-byte type tag
// the JIT's OsrBuffer and Generic-tier calling convention both carry
// alongside a payload.
type ValueKind uint8

const (
	KindUnit ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is the IR's only runtime datum: a tagged union over the
// primitive kinds the stack machine and JIT both understand.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
}

func UnitValue() Value             { return Value{Kind: KindUnit} }
func IntValue(v int64) Value       { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value   { return Value{Kind: KindFloat, Float: v} }
func BoolValue(v bool) Value       { return Value{Kind: KindBool, Bool: v} }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return "()"
	}
}

// Op is the stack machine's opcode, exactly the set spec'd for
// CompiledFunction: arithmetic/comparison over the stack top, name-keyed
// locals, forward/backward jumps, and three call shapes (plain, direct
// self-recursive, and tail self-recursive for TCO).
type Op int

const (
	OpConst Op = iota
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpLt
	OpGt
	OpLte
	OpGte
	OpEq
	OpNeq
	OpDup
	OpPop
	OpJump
	OpJumpIfNot
	OpCall
	OpSelfCall
	OpTailSelfCall
	OpReturn
)

var opNames = map[Op]string{
	OpConst: "Const", OpLoad: "Load", OpStore: "Store",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpNeg: "Neg",
	OpLt: "Lt", OpGt: "Gt", OpLte: "Lte", OpGte: "Gte", OpEq: "Eq", OpNeq: "Neq",
	OpDup: "Dup", OpPop: "Pop",
	OpJump: "Jump", OpJumpIfNot: "JumpIfNot",
	OpCall: "Call", OpSelfCall: "SelfCall", OpTailSelfCall: "TailSelfCall",
	OpReturn: "Return",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "Unknown"
}

// Instruction is one bytecode unit. Only the operand fields relevant to
// Op are meaningful; e.g. Name is read for Load/Store/Call and ignored
// otherwise. Offset is an absolute instruction index (not relative),
// resolved by the lowerer's jump-patching rather than left symbolic, so
// the VM/JIT never need a second resolution pass.
type Instruction struct {
	Op     Op
	Const  Value
	Name   string
	Offset int
	Argc   int
}

func (i Instruction) String() string {
	switch i.Op {
	case OpConst:
		return fmt.Sprintf("Const %s", i.Const)
	case OpLoad, OpStore:
		return fmt.Sprintf("%s %s", i.Op, i.Name)
	case OpJump, OpJumpIfNot:
		return fmt.Sprintf("%s %d", i.Op, i.Offset)
	case OpCall, OpSelfCall, OpTailSelfCall:
		return fmt.Sprintf("%s %s/%d", i.Op, i.Name, i.Argc)
	default:
		return i.Op.String()
	}
}

// CompiledFunction is the contract between the lowerer and both
// execution backends. LocalCount is the
// number of distinct local names seen (params plus let-bindings). The
// IR is name-keyed: the VM and JIT keep locals in maps keyed by
// Load/Store's Name, and the VM uses LocalCount only as a size hint.
type CompiledFunction struct {
	Name         string
	Params       []string
	Instructions []Instruction
	LocalCount   int
}
