package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// comptimeValue is the restricted value domain the comptime interpreter
// operates over: integers, floats, bools, and the unit
// value produced by statements with no tail expression.
type comptimeValue struct {
	kind comptimeKind
	i    int64
	f    float64
	b    bool
}

type comptimeKind int

const (
	ctUnit comptimeKind = iota
	ctInt
	ctFloat
	ctBool
)

// evalComptime evaluates a `comptime { ... }` block at type-checking time.
// Only a restricted subset is supported — integer/float/bool literals,
// `let` bindings and the identifiers they bind, blocks, if/else, unary
// -/!, arithmetic, comparisons, && and ||, and the integer bitwise/shift
// operators; no calls, loops or match; anything else is E053.
// The result's runtime type mirrors the evaluated value's kind.
func (c *Checker) evalComptime(env *types.Env, body *ast.Block) (types.Type, error) {
	scope := newComptimeScope(nil)
	val, err := c.evalComptimeBlock(body.Span(), scope, body)
	if err != nil {
		return nil, err
	}
	switch val.kind {
	case ctInt:
		return &types.Primitive{Kind: types.I64}, nil
	case ctFloat:
		return &types.Primitive{Kind: types.F64}, nil
	case ctBool:
		return &types.Primitive{Kind: types.Bool}, nil
	default:
		return types.Unit(), nil
	}
}

type comptimeScope struct {
	parent *comptimeScope
	vars   map[string]comptimeValue
}

func newComptimeScope(parent *comptimeScope) *comptimeScope {
	return &comptimeScope{parent: parent, vars: make(map[string]comptimeValue)}
}

func (s *comptimeScope) lookup(name string) (comptimeValue, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return comptimeValue{}, false
}

func (c *Checker) evalComptimeBlock(span diag.Span, scope *comptimeScope, b *ast.Block) (comptimeValue, error) {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			val, err := c.evalComptimeExpr(scope, s.Value)
			if err != nil {
				return comptimeValue{}, err
			}
			if ident, ok := s.Pattern.(*ast.IdentPattern); ok {
				scope.vars[ident.Name] = val
			}
		case *ast.ExprStmt:
			if _, err := c.evalComptimeExpr(scope, s.Value); err != nil {
				return comptimeValue{}, err
			}
		default:
			if err := c.report(diag.New(diag.E053, span, "unsupported construct in comptime block")); err != nil {
				return comptimeValue{}, err
			}
		}
	}
	if b.Tail == nil {
		return comptimeValue{kind: ctUnit}, nil
	}
	return c.evalComptimeExpr(scope, b.Tail)
}

func (c *Checker) evalComptimeExpr(scope *comptimeScope, e ast.Expr) (comptimeValue, error) {
	switch v := e.(type) {
	case *ast.IntLit:
		return comptimeValue{kind: ctInt, i: v.Value}, nil
	case *ast.FloatLit:
		return comptimeValue{kind: ctFloat, f: v.Value}, nil
	case *ast.BoolLit:
		return comptimeValue{kind: ctBool, b: v.Value}, nil
	case *ast.Ident:
		val, ok := scope.lookup(v.Name)
		if !ok {
			return comptimeValue{}, c.report(diag.New(diag.E052, v.Span(), "non-constant input %q in comptime expression", v.Name))
		}
		return val, nil
	case *ast.Unary:
		inner, err := c.evalComptimeExpr(scope, v.Operand)
		if err != nil {
			return comptimeValue{}, err
		}
		switch v.Op {
		case ast.OpNeg:
			if inner.kind == ctFloat {
				return comptimeValue{kind: ctFloat, f: -inner.f}, nil
			}
			return comptimeValue{kind: ctInt, i: -inner.i}, nil
		case ast.OpNot:
			return comptimeValue{kind: ctBool, b: !inner.b}, nil
		default:
			return comptimeValue{}, c.report(diag.New(diag.E053, v.Span(), "unsupported comptime unary operator"))
		}
	case *ast.Binary:
		return c.evalComptimeBinary(scope, v)
	case *ast.If:
		cond, err := c.evalComptimeExpr(scope, v.Cond)
		if err != nil {
			return comptimeValue{}, err
		}
		if cond.b {
			return c.evalComptimeBlock(v.Span(), newComptimeScope(scope), v.Then)
		}
		if v.ElseBlock != nil {
			return c.evalComptimeBlock(v.Span(), newComptimeScope(scope), v.ElseBlock)
		}
		if v.ElseIf != nil {
			return c.evalComptimeExpr(scope, v.ElseIf)
		}
		return comptimeValue{kind: ctUnit}, nil
	case *ast.Block:
		return c.evalComptimeBlock(v.Span(), newComptimeScope(scope), v)
	default:
		return comptimeValue{}, c.report(diag.New(diag.E053, e.Span(), "unsupported construct in comptime expression"))
	}
}

func (c *Checker) evalComptimeBinary(scope *comptimeScope, v *ast.Binary) (comptimeValue, error) {
	l, err := c.evalComptimeExpr(scope, v.Left)
	if err != nil {
		return comptimeValue{}, err
	}
	r, err := c.evalComptimeExpr(scope, v.Right)
	if err != nil {
		return comptimeValue{}, err
	}

	if v.Op == ast.OpAnd {
		return comptimeValue{kind: ctBool, b: l.b && r.b}, nil
	}
	if v.Op == ast.OpOr {
		return comptimeValue{kind: ctBool, b: l.b || r.b}, nil
	}

	if l.kind == ctFloat || r.kind == ctFloat {
		lf, rf := asFloat(l), asFloat(r)
		switch v.Op {
		case ast.OpAdd:
			return comptimeValue{kind: ctFloat, f: lf + rf}, nil
		case ast.OpSub:
			return comptimeValue{kind: ctFloat, f: lf - rf}, nil
		case ast.OpMul:
			return comptimeValue{kind: ctFloat, f: lf * rf}, nil
		case ast.OpDiv:
			if rf == 0 {
				return comptimeValue{}, c.report(diag.New(diag.E051, v.Span(), "comptime division by zero"))
			}
			return comptimeValue{kind: ctFloat, f: lf / rf}, nil
		case ast.OpLt:
			return comptimeValue{kind: ctBool, b: lf < rf}, nil
		case ast.OpGt:
			return comptimeValue{kind: ctBool, b: lf > rf}, nil
		case ast.OpLte:
			return comptimeValue{kind: ctBool, b: lf <= rf}, nil
		case ast.OpGte:
			return comptimeValue{kind: ctBool, b: lf >= rf}, nil
		case ast.OpEq:
			return comptimeValue{kind: ctBool, b: lf == rf}, nil
		case ast.OpNeq:
			return comptimeValue{kind: ctBool, b: lf != rf}, nil
		default:
			return comptimeValue{}, c.report(diag.New(diag.E053, v.Span(), "unsupported comptime float operator"))
		}
	}

	switch v.Op {
	case ast.OpAdd:
		sum := l.i + r.i
		if (sum > l.i) != (r.i > 0) {
			return comptimeValue{}, c.report(diag.New(diag.E050, v.Span(), "comptime addition overflow"))
		}
		return comptimeValue{kind: ctInt, i: sum}, nil
	case ast.OpSub:
		diff := l.i - r.i
		if (diff < l.i) != (r.i > 0) {
			return comptimeValue{}, c.report(diag.New(diag.E050, v.Span(), "comptime subtraction overflow"))
		}
		return comptimeValue{kind: ctInt, i: diff}, nil
	case ast.OpMul:
		if l.i != 0 && r.i != 0 {
			prod := l.i * r.i
			if prod/r.i != l.i || (r.i == -1 && l.i == -1<<63) {
				return comptimeValue{}, c.report(diag.New(diag.E050, v.Span(), "comptime multiplication overflow"))
			}
			return comptimeValue{kind: ctInt, i: prod}, nil
		}
		return comptimeValue{kind: ctInt, i: 0}, nil
	case ast.OpDiv:
		if r.i == 0 {
			return comptimeValue{}, c.report(diag.New(diag.E051, v.Span(), "comptime division by zero"))
		}
		if r.i == -1 && l.i == -1<<63 {
			return comptimeValue{}, c.report(diag.New(diag.E050, v.Span(), "comptime division overflow"))
		}
		return comptimeValue{kind: ctInt, i: l.i / r.i}, nil
	case ast.OpMod:
		if r.i == 0 {
			return comptimeValue{}, c.report(diag.New(diag.E051, v.Span(), "comptime modulo by zero"))
		}
		return comptimeValue{kind: ctInt, i: l.i % r.i}, nil
	case ast.OpLt:
		return comptimeValue{kind: ctBool, b: l.i < r.i}, nil
	case ast.OpGt:
		return comptimeValue{kind: ctBool, b: l.i > r.i}, nil
	case ast.OpLte:
		return comptimeValue{kind: ctBool, b: l.i <= r.i}, nil
	case ast.OpGte:
		return comptimeValue{kind: ctBool, b: l.i >= r.i}, nil
	case ast.OpEq:
		return comptimeValue{kind: ctBool, b: l.i == r.i}, nil
	case ast.OpNeq:
		return comptimeValue{kind: ctBool, b: l.i != r.i}, nil
	case ast.OpBitAnd:
		return comptimeValue{kind: ctInt, i: l.i & r.i}, nil
	case ast.OpBitOr:
		return comptimeValue{kind: ctInt, i: l.i | r.i}, nil
	case ast.OpBitXor:
		return comptimeValue{kind: ctInt, i: l.i ^ r.i}, nil
	case ast.OpShl:
		return comptimeValue{kind: ctInt, i: l.i << uint(r.i)}, nil
	case ast.OpShr:
		return comptimeValue{kind: ctInt, i: l.i >> uint(r.i)}, nil
	default:
		return comptimeValue{}, c.report(diag.New(diag.E053, v.Span(), "unsupported comptime operator"))
	}
}

func asFloat(v comptimeValue) float64 {
	if v.kind == ctFloat {
		return v.f
	}
	return float64(v.i)
}
