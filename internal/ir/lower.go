package ir

import (
	"fmt"

	"github.com/vaislang/vais/internal/ast"
)

// LoweringError reports an AST construct the stack-bytecode instruction
// set has no encoding for — fatal for the function being lowered.
// Struct/array/string/bitwise-op lowering is out of
// this IR's scope by design (see DESIGN.md) rather than an omission: the
// JIT's IntOnly/FloatOnly tiers and the VM's stack machine both only ever
// see the primitive subset this package actually emits.
type LoweringError struct {
	Function string
	Detail   string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("ir: cannot lower function %q: %s", e.Function, e.Detail)
}

// Lower walks every function-shaped item in mod (free functions and impl
// methods) and lowers each to a CompiledFunction. A function with no body
// (a trait signature) is skipped — it has nothing to lower. The first
// LoweringError encountered aborts the whole pass, matching the "fatal
// for the function" contract escalated to "fatal for the lowering
// query" the way internal/query's generate_ir stage expects a single
// Result, not a partial list.
func Lower(mod *ast.Module) ([]*CompiledFunction, error) {
	var out []*CompiledFunction
	var walk func(items []ast.Item) error
	walk = func(items []ast.Item) error {
		for _, item := range items {
			switch v := item.(type) {
			case *ast.Function:
				if v.Body == nil {
					continue
				}
				fn, err := lowerFunction(v.Name, v.Params, v.Body)
				if err != nil {
					return err
				}
				out = append(out, fn)
			case *ast.ImplDecl:
				for _, m := range v.Methods {
					if m.Body == nil {
						continue
					}
					name := m.Name
					if nt, ok := v.ForType.(*ast.NamedType); ok {
						name = nt.Name + "." + m.Name
					}
					fn, err := lowerFunction(name, m.Params, m.Body)
					if err != nil {
						return err
					}
					out = append(out, fn)
				}
			case *ast.ModuleDecl:
				if err := walk(v.Items); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(mod.Items); err != nil {
		return nil, err
	}
	return out, nil
}

// lowerer holds the mutable state of a single function's lowering pass:
// the growing instruction buffer, the set of local names seen so far
// (for LocalCount), and the nested loop context needed to patch
// break/continue jumps once their targets are known.
type lowerer struct {
	fnName   string
	instrs   []Instruction
	locals   map[string]bool
	loopCtxs []*loopCtx
}

type loopCtx struct {
	header     int  // instruction index to jump back to on `continue`
	breakJumps []int // indices of Jump placeholders to patch to the loop's exit
}

func lowerFunction(name string, params []ast.Param, body *ast.Block) (*CompiledFunction, error) {
	l := &lowerer{fnName: name, locals: make(map[string]bool)}
	var paramNames []string
	for _, p := range params {
		if p.IsSelf {
			paramNames = append(paramNames, "self")
			l.locals["self"] = true
			continue
		}
		paramNames = append(paramNames, p.Name)
		l.locals[p.Name] = true
	}

	if err := l.lowerBlockTail(body, true); err != nil {
		return nil, err
	}
	l.emit(Instruction{Op: OpReturn})

	return &CompiledFunction{
		Name:         name,
		Params:       paramNames,
		Instructions: l.instrs,
		LocalCount:   len(l.locals),
	}, nil
}

func (l *lowerer) emit(i Instruction) int {
	l.instrs = append(l.instrs, i)
	return len(l.instrs) - 1
}

func (l *lowerer) patch(idx, target int) { l.instrs[idx].Offset = target }

func (l *lowerer) here() int { return len(l.instrs) }

func (l *lowerer) err(format string, args ...interface{}) error {
	return &LoweringError{Function: l.fnName, Detail: fmt.Sprintf(format, args...)}
}

// lowerBlockTail lowers b's statements, then its tail expression (or a
// Unit constant if absent). tail is passed on to the tail expression's
// lowerExpr, where it decides the Call vs. SelfCall/TailSelfCall choice;
// a block's *statements* are lowered without it, since they are never
// themselves in tail position — only its tail expression and explicit
// `return` statements are.
func (l *lowerer) lowerBlockTail(b *ast.Block, tail bool) error {
	for _, stmt := range b.Stmts {
		if err := l.lowerStmt(stmt); err != nil {
			return err
		}
	}
	if b.Tail != nil {
		return l.lowerExpr(b.Tail, tail)
	}
	l.emit(Instruction{Op: OpConst, Const: UnitValue()})
	return nil
}

func (l *lowerer) lowerStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if err := l.lowerExpr(s.Value, false); err != nil {
			return err
		}
		ident, ok := s.Pattern.(*ast.IdentPattern)
		if !ok {
			return l.err("let binding pattern %T is not a plain identifier", s.Pattern)
		}
		l.locals[ident.Name] = true
		l.emit(Instruction{Op: OpStore, Name: ident.Name})
		return nil

	case *ast.ExprStmt:
		if err := l.lowerExpr(s.Value, false); err != nil {
			return err
		}
		l.emit(Instruction{Op: OpPop})
		return nil

	case *ast.ReturnStmt:
		if s.Value != nil {
			if err := l.lowerExpr(s.Value, true); err != nil {
				return err
			}
		} else {
			l.emit(Instruction{Op: OpConst, Const: UnitValue()})
		}
		l.emit(Instruction{Op: OpReturn})
		return nil

	case *ast.BreakStmt:
		if len(l.loopCtxs) == 0 {
			return l.err("break outside of a loop")
		}
		if s.Value != nil {
			if err := l.lowerExpr(s.Value, false); err != nil {
				return err
			}
		} else {
			l.emit(Instruction{Op: OpConst, Const: UnitValue()})
		}
		ctx := l.loopCtxs[len(l.loopCtxs)-1]
		idx := l.emit(Instruction{Op: OpJump})
		ctx.breakJumps = append(ctx.breakJumps, idx)
		return nil

	case *ast.ContinueStmt:
		if len(l.loopCtxs) == 0 {
			return l.err("continue outside of a loop")
		}
		ctx := l.loopCtxs[len(l.loopCtxs)-1]
		l.emit(Instruction{Op: OpJump, Offset: ctx.header})
		return nil

	case *ast.DeferStmt:
		return l.err("defer has no encoding in the stack-bytecode instruction set")

	default:
		return l.err("unsupported statement %T", stmt)
	}
}

// lowerExpr lowers e so it leaves exactly one value on the stack. tail
// indicates e is in tail position (the function's final returned value);
// it is threaded through If/Match/Block arms so a `return f(...)` or
// trailing `f(...)` to the current function lowers to TailSelfCall.
func (l *lowerer) lowerExpr(e ast.Expr, tail bool) error {
	switch v := e.(type) {
	case *ast.IntLit:
		l.emit(Instruction{Op: OpConst, Const: IntValue(v.Value)})
		return nil
	case *ast.FloatLit:
		l.emit(Instruction{Op: OpConst, Const: FloatValue(v.Value)})
		return nil
	case *ast.BoolLit:
		l.emit(Instruction{Op: OpConst, Const: BoolValue(v.Value)})
		return nil
	case *ast.Ident:
		l.emit(Instruction{Op: OpLoad, Name: v.Name})
		return nil

	case *ast.Binary:
		return l.lowerBinary(v)

	case *ast.Unary:
		switch v.Op {
		case ast.OpNeg:
			if err := l.lowerExpr(v.Operand, false); err != nil {
				return err
			}
			l.emit(Instruction{Op: OpNeg})
			return nil
		case ast.OpNot:
			if err := l.lowerExpr(v.Operand, false); err != nil {
				return err
			}
			l.emit(Instruction{Op: OpConst, Const: BoolValue(false)})
			l.emit(Instruction{Op: OpEq})
			return nil
		default:
			return l.err("unary operator %v has no stack-bytecode encoding", v.Op)
		}

	case *ast.Call:
		callee, ok := v.Callee.(*ast.Ident)
		if !ok {
			return l.err("indirect call through %T is not supported by this IR", v.Callee)
		}
		for _, a := range v.Args {
			if err := l.lowerExpr(a, false); err != nil {
				return err
			}
		}
		switch {
		case callee.Name == l.fnName && tail:
			l.emit(Instruction{Op: OpTailSelfCall, Name: callee.Name, Argc: len(v.Args)})
		case callee.Name == l.fnName:
			l.emit(Instruction{Op: OpSelfCall, Name: callee.Name, Argc: len(v.Args)})
		default:
			l.emit(Instruction{Op: OpCall, Name: callee.Name, Argc: len(v.Args)})
		}
		return nil

	case *ast.Block:
		return l.lowerBlockTail(v, tail)

	case *ast.If:
		return l.lowerIf(v, tail)

	case *ast.Match:
		return l.lowerMatch(v, tail)

	case *ast.While:
		return l.lowerWhile(v)

	case *ast.Loop:
		return l.lowerLoop(v)

	case *ast.Assign:
		target, ok := v.Target.(*ast.Ident)
		if !ok {
			return l.err("assignment target %T is not a plain local", v.Target)
		}
		if err := l.lowerExpr(v.Value, false); err != nil {
			return err
		}
		l.emit(Instruction{Op: OpStore, Name: target.Name})
		l.emit(Instruction{Op: OpConst, Const: UnitValue()})
		return nil

	case *ast.AssignOp:
		target, ok := v.Target.(*ast.Ident)
		if !ok {
			return l.err("assignment target %T is not a plain local", v.Target)
		}
		l.emit(Instruction{Op: OpLoad, Name: target.Name})
		if err := l.lowerExpr(v.Value, false); err != nil {
			return err
		}
		op, err := binOpcode(v.Op)
		if err != nil {
			return l.err("%s", err)
		}
		l.emit(Instruction{Op: op})
		l.emit(Instruction{Op: OpStore, Name: target.Name})
		l.emit(Instruction{Op: OpConst, Const: UnitValue()})
		return nil

	default:
		return l.err("%T has no stack-bytecode encoding", e)
	}
}

func (l *lowerer) lowerBinary(v *ast.Binary) error {
	if v.Op == ast.OpAnd {
		// Short-circuit: left && right ≡ if left { right } else { false }.
		if err := l.lowerExpr(v.Left, false); err != nil {
			return err
		}
		jf := l.emit(Instruction{Op: OpJumpIfNot})
		if err := l.lowerExpr(v.Right, false); err != nil {
			return err
		}
		je := l.emit(Instruction{Op: OpJump})
		l.patch(jf, l.here())
		l.emit(Instruction{Op: OpConst, Const: BoolValue(false)})
		l.patch(je, l.here())
		return nil
	}
	if v.Op == ast.OpOr {
		// Short-circuit: left || right ≡ if left { true } else { right }.
		if err := l.lowerExpr(v.Left, false); err != nil {
			return err
		}
		jf := l.emit(Instruction{Op: OpJumpIfNot})
		l.emit(Instruction{Op: OpConst, Const: BoolValue(true)})
		je := l.emit(Instruction{Op: OpJump})
		l.patch(jf, l.here())
		if err := l.lowerExpr(v.Right, false); err != nil {
			return err
		}
		l.patch(je, l.here())
		return nil
	}
	if err := l.lowerExpr(v.Left, false); err != nil {
		return err
	}
	if err := l.lowerExpr(v.Right, false); err != nil {
		return err
	}
	op, err := binOpcode(v.Op)
	if err != nil {
		return l.err("%s", err)
	}
	l.emit(Instruction{Op: op})
	return nil
}

func binOpcode(op ast.BinaryOp) (Op, error) {
	switch op {
	case ast.OpAdd:
		return OpAdd, nil
	case ast.OpSub:
		return OpSub, nil
	case ast.OpMul:
		return OpMul, nil
	case ast.OpDiv:
		return OpDiv, nil
	case ast.OpMod:
		return OpMod, nil
	case ast.OpLt:
		return OpLt, nil
	case ast.OpGt:
		return OpGt, nil
	case ast.OpLte:
		return OpLte, nil
	case ast.OpGte:
		return OpGte, nil
	case ast.OpEq:
		return OpEq, nil
	case ast.OpNeq:
		return OpNeq, nil
	default:
		return 0, fmt.Errorf("binary operator %v has no stack-bytecode encoding", op)
	}
}

func (l *lowerer) lowerIf(v *ast.If, tail bool) error {
	if err := l.lowerExpr(v.Cond, false); err != nil {
		return err
	}
	jf := l.emit(Instruction{Op: OpJumpIfNot})
	if err := l.lowerBlockTail(v.Then, tail); err != nil {
		return err
	}
	je := l.emit(Instruction{Op: OpJump})
	l.patch(jf, l.here())

	switch {
	case v.ElseBlock != nil:
		if err := l.lowerBlockTail(v.ElseBlock, tail); err != nil {
			return err
		}
	case v.ElseIf != nil:
		if err := l.lowerIf(v.ElseIf, tail); err != nil {
			return err
		}
	default:
		l.emit(Instruction{Op: OpConst, Const: UnitValue()})
	}
	l.patch(je, l.here())
	return nil
}

// lowerMatch only supports the subset of patterns expressible as an
// equality cascade against the subject: literals and a single trailing
// wildcard/bare-ident catch-all. Struct/tuple/enum-destructuring arms
// have no encoding in this instruction set (they would need field-access
// opcodes this IR doesn't carry) and are rejected with a LoweringError.
func (l *lowerer) lowerMatch(v *ast.Match, tail bool) error {
	if err := l.lowerExpr(v.Subject, false); err != nil {
		return err
	}
	var endJumps []int
	for i, arm := range v.Arms {
		last := i == len(v.Arms)-1
		switch pat := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			l.emit(Instruction{Op: OpPop})
			if err := l.lowerExpr(arm.Body, tail); err != nil {
				return err
			}
			if !last {
				return l.err("wildcard match arm must be last")
			}
			goto end
		case *ast.IdentPattern:
			if pat.SubPat != nil {
				return l.err("binding sub-patterns are not supported by this IR")
			}
			l.emit(Instruction{Op: OpStore, Name: pat.Name})
			l.locals[pat.Name] = true
			if err := l.lowerExpr(arm.Body, tail); err != nil {
				return err
			}
			if !last {
				return l.err("catch-all binding match arm must be last")
			}
			goto end
		case *ast.LitPattern:
			litVal, err := literalPatternValue(pat)
			if err != nil {
				return l.err("%s", err)
			}
			l.emit(Instruction{Op: OpDup})
			l.emit(Instruction{Op: OpConst, Const: litVal})
			l.emit(Instruction{Op: OpEq})
			jf := l.emit(Instruction{Op: OpJumpIfNot})
			l.emit(Instruction{Op: OpPop})
			if err := l.lowerExpr(arm.Body, tail); err != nil {
				return err
			}
			endJumps = append(endJumps, l.emit(Instruction{Op: OpJump}))
			l.patch(jf, l.here())
		default:
			return l.err("match pattern %T has no stack-bytecode encoding", arm.Pattern)
		}
	}
	// Every arm was a literal test and none matched: no default case.
	return l.err("non-exhaustive match: no catch-all arm")
end:
	for _, idx := range endJumps {
		l.patch(idx, l.here())
	}
	return nil
}

func literalPatternValue(p *ast.LitPattern) (Value, error) {
	switch lit := p.Value.(type) {
	case *ast.IntLit:
		return IntValue(lit.Value), nil
	case *ast.FloatLit:
		return FloatValue(lit.Value), nil
	case *ast.BoolLit:
		return BoolValue(lit.Value), nil
	default:
		return Value{}, fmt.Errorf("literal pattern of kind %T has no stack-bytecode encoding", p.Value)
	}
}

func (l *lowerer) lowerWhile(v *ast.While) error {
	header := l.here()
	if err := l.lowerExpr(v.Cond, false); err != nil {
		return err
	}
	jf := l.emit(Instruction{Op: OpJumpIfNot})

	ctx := &loopCtx{header: header}
	l.loopCtxs = append(l.loopCtxs, ctx)
	if err := l.lowerBlockTail(v.Body, false); err != nil {
		return err
	}
	l.loopCtxs = l.loopCtxs[:len(l.loopCtxs)-1]
	l.emit(Instruction{Op: OpPop}) // body's Unit tail value, discarded
	l.emit(Instruction{Op: OpJump, Offset: header})

	l.patch(jf, l.here())
	for _, idx := range ctx.breakJumps {
		l.patch(idx, l.here())
	}
	l.emit(Instruction{Op: OpConst, Const: UnitValue()})
	return nil
}

// lowerLoop lowers an unconditional `loop { ... }`. The loop's own value
// comes entirely from whatever a `break <value>` pushes; a loop with no
// break is rejected with a LoweringError.
func (l *lowerer) lowerLoop(v *ast.Loop) error {
	header := l.here()
	ctx := &loopCtx{header: header}
	l.loopCtxs = append(l.loopCtxs, ctx)
	if err := l.lowerBlockTail(v.Body, false); err != nil {
		return err
	}
	l.loopCtxs = l.loopCtxs[:len(l.loopCtxs)-1]
	l.emit(Instruction{Op: OpPop}) // body's Unit tail value, discarded
	l.emit(Instruction{Op: OpJump, Offset: header})

	if len(ctx.breakJumps) == 0 {
		return l.err("loop has no reachable break and no encoded value")
	}
	for _, idx := range ctx.breakJumps {
		l.patch(idx, l.here())
	}
	return nil
}
