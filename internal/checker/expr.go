package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// inferExpr infers the type of an expression under env, extending the
// checker's unifier in place. Returns the first fatal error encountered
// in fail-fast mode; in multi-error mode it records diagnostics and keeps
// going, returning types.UnknownType{} for the failed subexpression so
// the caller can keep type-checking the rest of the tree.
func (c *Checker) inferExpr(env *types.Env, e ast.Expr) (types.Type, error) {
	switch v := e.(type) {
	case *ast.IntLit:
		return c.Unifier.Fresh(), nil // defaulted to I64 at statement end if never constrained
	case *ast.FloatLit:
		return &types.Primitive{Kind: types.F64}, nil
	case *ast.BoolLit:
		return &types.Primitive{Kind: types.Bool}, nil
	case *ast.StringLit:
		return &types.Primitive{Kind: types.Str}, nil

	case *ast.StringInterp:
		for _, sub := range v.Exprs {
			if _, err := c.inferExpr(env, sub); err != nil {
				return nil, err
			}
		}
		return &types.Primitive{Kind: types.Str}, nil

	case *ast.Ident:
		scheme, ok := env.Lookup(v.Name)
		if !ok {
			if err := c.report(newUndefinedVar(v.Span(), v.Name, c.namesInScope(env))); err != nil {
				return nil, err
			}
			return &types.UnknownType{}, nil
		}
		return types.Instantiate(c.Unifier, scheme), nil

	case *ast.Binary:
		return c.inferBinary(env, v)

	case *ast.Unary:
		t, err := c.inferExpr(env, v.Operand)
		if err != nil {
			return nil, err
		}
		if v.Op == ast.OpNot {
			return &types.Primitive{Kind: types.Bool}, c.unifyOrReport(v.Span(), &types.Primitive{Kind: types.Bool}, t)
		}
		if v.Op == ast.OpRef {
			return &types.Ref{Elem: t}, nil
		}
		if v.Op == ast.OpRefMut {
			return &types.RefMut{Elem: t}, nil
		}
		if v.Op == ast.OpDeref {
			if r, ok := types.Unwrap(t).(*types.Ref); ok {
				return r.Elem, nil
			}
			if r, ok := types.Unwrap(t).(*types.RefMut); ok {
				return r.Elem, nil
			}
			return &types.UnknownType{}, nil
		}
		return t, nil

	case *ast.Call:
		return c.inferCall(env, v)

	case *ast.MethodCall:
		return c.inferMethodCall(env, v)

	case *ast.FieldExpr:
		return c.inferField(env, v)

	case *ast.IndexExpr:
		recv, err := c.inferExpr(env, v.Receiver)
		if err != nil {
			return nil, err
		}
		if _, err := c.inferExpr(env, v.Index); err != nil {
			return nil, err
		}
		switch r := types.Unwrap(recv).(type) {
		case *types.Array:
			return r.Elem, nil
		case *types.ConstArray:
			return r.Elem, nil
		case *types.Slice:
			return r.Elem, nil
		case *types.SliceMut:
			return r.Elem, nil
		case *types.Map:
			return &types.Optional{Elem: r.Value}, nil
		default:
			return &types.UnknownType{}, nil
		}

	case *ast.Block:
		return c.inferBlock(env, v)

	case *ast.If:
		return c.inferIf(env, v)

	case *ast.Match:
		return c.inferMatch(env, v)

	case *ast.Loop:
		_, err := c.inferExpr(env, v.Body)
		return c.Unifier.Fresh(), err // break values determine the real type; placeholder var

	case *ast.While:
		if _, err := c.inferExpr(env, v.Cond); err != nil {
			return nil, err
		}
		_, err := c.inferExpr(env, v.Body)
		return types.Unit(), err

	case *ast.RangeExpr:
		st, err := c.inferExpr(env, v.Start)
		if err != nil {
			return nil, err
		}
		if _, err := c.inferExpr(env, v.End); err != nil {
			return nil, err
		}
		return &types.RangeType{Elem: st}, nil

	case *ast.Lambda:
		return c.inferLambda(env, v)

	case *ast.StructLit:
		return c.inferStructLit(env, v)

	case *ast.Cast:
		if _, err := c.inferExpr(env, v.Value); err != nil {
			return nil, err
		}
		return c.resolveAstType(v.Type), nil

	case *ast.Try:
		inner, err := c.inferExpr(env, v.Value)
		if err != nil {
			return nil, err
		}
		if r, ok := types.Unwrap(inner).(*types.Result); ok {
			return r.Ok, nil
		}
		if o, ok := types.Unwrap(inner).(*types.Optional); ok {
			return o.Elem, nil
		}
		return &types.UnknownType{}, nil

	case *ast.Unwrap:
		inner, err := c.inferExpr(env, v.Value)
		if err != nil {
			return nil, err
		}
		if r, ok := types.Unwrap(inner).(*types.Result); ok {
			return r.Ok, nil
		}
		if o, ok := types.Unwrap(inner).(*types.Optional); ok {
			return o.Elem, nil
		}
		return &types.UnknownType{}, nil

	case *ast.Assign:
		target, err := c.inferExpr(env, v.Target)
		if err != nil {
			return nil, err
		}
		value, err := c.inferExpr(env, v.Value)
		if err != nil {
			return nil, err
		}
		if err := c.unifyOrReport(v.Span(), target, value); err != nil {
			return nil, err
		}
		return types.Unit(), nil

	case *ast.AssignOp:
		target, err := c.inferExpr(env, v.Target)
		if err != nil {
			return nil, err
		}
		value, err := c.inferExpr(env, v.Value)
		if err != nil {
			return nil, err
		}
		if err := c.unifyOrReport(v.Span(), target, value); err != nil {
			return nil, err
		}
		return types.Unit(), nil

	case *ast.ComptimeExpr:
		return c.evalComptime(env, v.Body)

	case *ast.MacroInvoke:
		if err := c.report(diagUnexpandedMacro(v.Span(), v.Name)); err != nil {
			return nil, err
		}
		return &types.UnknownType{}, nil

	case *ast.AssertExpr:
		if _, err := c.inferExpr(env, v.Cond); err != nil {
			return nil, err
		}
		return types.Unit(), nil

	case *ast.AssumeExpr:
		if _, err := c.inferExpr(env, v.Cond); err != nil {
			return nil, err
		}
		return types.Unit(), nil

	case *ast.OldExpr:
		return c.inferExpr(env, v.Value)

	case *ast.ExprError:
		return &types.UnknownType{}, nil

	case *ast.TupleLit:
		elems := make([]types.Type, len(v.Elems))
		for i, el := range v.Elems {
			t, err := c.inferExpr(env, el)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return &types.Tuple{Elems: elems}, nil

	case *ast.ArrayLit:
		if len(v.Elems) == 0 {
			if err := c.report(diag.New(diag.E026, v.Span(), "cannot infer element type of empty array literal")); err != nil {
				return nil, err
			}
			return &types.Array{Elem: &types.UnknownType{}}, nil
		}
		elem, err := c.inferExpr(env, v.Elems[0])
		if err != nil {
			return nil, err
		}
		for _, el := range v.Elems[1:] {
			t, err := c.inferExpr(env, el)
			if err != nil {
				return nil, err
			}
			if err := c.unifyOrReport(el.Span(), elem, t); err != nil {
				return nil, err
			}
		}
		return &types.Array{Elem: elem}, nil

	default:
		return &types.UnknownType{}, nil
	}
}

// unifyOrReport unifies expected/found, turning a unification failure into
// an E020 diagnostic anchored at span rather than propagating the raw
// *types.UnifyError (which carries no source position).
func (c *Checker) unifyOrReport(span diag.Span, expected, found types.Type) error {
	if err := c.Unifier.Unify(expected, found); err != nil {
		return c.report(newMismatch(span, expected, found))
	}
	return nil
}

func (c *Checker) namesInScope(env *types.Env) []string {
	return env.Names()
}
