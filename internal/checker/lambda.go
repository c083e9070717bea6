package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// checkLambdaCaptures verifies that every free variable a lambda closes
// over is compatible with its declared capture mode. Free names with no
// binding in env (globals, function names) are skipped. A ByMutRef
// capture of a bound name requires that it was declared `let mut`;
// ByRef, Move and ByValue captures place no requirement on the source
// binding.
func (c *Checker) checkLambdaCaptures(env *types.Env, v *ast.Lambda) error {
	params := make(map[string]bool, len(v.Params))
	for _, p := range v.Params {
		params[p.Name] = true
	}
	free := make(map[string]diag.Span)
	collectFreeIdents(v.Body, params, free)

	for name, span := range free {
		_, ok := env.Lookup(name)
		if !ok {
			// Not a local binding (could be a global/function name);
			// capture-mode rules only constrain local closures-over.
			continue
		}
		if v.Capture == ast.CaptureByMutRef && !env.IsMutable(name) {
			if err := c.report(diag.New(diag.E028, span,
				"closure captures %q by mutable reference, but it was not declared `let mut`", name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectFreeIdents walks e collecting every ast.Ident not shadowed by
// bound (the lambda's own params, extended with any nested let/pattern
// bindings encountered along the way).
func collectFreeIdents(e ast.Expr, bound map[string]bool, out map[string]diag.Span) {
	switch v := e.(type) {
	case *ast.Ident:
		if !bound[v.Name] {
			if _, seen := out[v.Name]; !seen {
				out[v.Name] = v.Span()
			}
		}
	case *ast.Binary:
		collectFreeIdents(v.Left, bound, out)
		collectFreeIdents(v.Right, bound, out)
	case *ast.Unary:
		collectFreeIdents(v.Operand, bound, out)
	case *ast.Call:
		collectFreeIdents(v.Callee, bound, out)
		for _, a := range v.Args {
			collectFreeIdents(a, bound, out)
		}
	case *ast.MethodCall:
		collectFreeIdents(v.Receiver, bound, out)
		for _, a := range v.Args {
			collectFreeIdents(a, bound, out)
		}
	case *ast.FieldExpr:
		collectFreeIdents(v.Receiver, bound, out)
	case *ast.IndexExpr:
		collectFreeIdents(v.Receiver, bound, out)
		collectFreeIdents(v.Index, bound, out)
	case *ast.Block:
		inner := cloneBoundSet(bound)
		for _, stmt := range v.Stmts {
			switch s := stmt.(type) {
			case *ast.LetStmt:
				collectFreeIdents(s.Value, inner, out)
				bindPatternNames(s.Pattern, inner)
			case *ast.ExprStmt:
				collectFreeIdents(s.Value, inner, out)
			case *ast.ReturnStmt:
				if s.Value != nil {
					collectFreeIdents(s.Value, inner, out)
				}
			case *ast.DeferStmt:
				collectFreeIdents(s.Value, inner, out)
			}
		}
		if v.Tail != nil {
			collectFreeIdents(v.Tail, inner, out)
		}
	case *ast.If:
		collectFreeIdents(v.Cond, bound, out)
		collectFreeIdents(v.Then, bound, out)
		if v.ElseBlock != nil {
			collectFreeIdents(v.ElseBlock, bound, out)
		}
		if v.ElseIf != nil {
			collectFreeIdents(v.ElseIf, bound, out)
		}
	case *ast.Match:
		collectFreeIdents(v.Subject, bound, out)
		for _, arm := range v.Arms {
			inner := cloneBoundSet(bound)
			bindPatternNames(arm.Pattern, inner)
			if arm.Guard != nil {
				collectFreeIdents(arm.Guard, inner, out)
			}
			collectFreeIdents(arm.Body, inner, out)
		}
	case *ast.While:
		collectFreeIdents(v.Cond, bound, out)
		collectFreeIdents(v.Body, bound, out)
	case *ast.Loop:
		collectFreeIdents(v.Body, bound, out)
	case *ast.Assign:
		collectFreeIdents(v.Target, bound, out)
		collectFreeIdents(v.Value, bound, out)
	case *ast.AssignOp:
		collectFreeIdents(v.Target, bound, out)
		collectFreeIdents(v.Value, bound, out)
	case *ast.Lambda:
		inner := cloneBoundSet(bound)
		for _, p := range v.Params {
			inner[p.Name] = true
		}
		collectFreeIdents(v.Body, inner, out)
	case *ast.StructLit:
		for _, f := range v.Fields {
			collectFreeIdents(f.Value, bound, out)
		}
		if v.Spread != nil {
			collectFreeIdents(v.Spread, bound, out)
		}
	case *ast.Cast:
		collectFreeIdents(v.Value, bound, out)
	case *ast.Try:
		collectFreeIdents(v.Value, bound, out)
	case *ast.Unwrap:
		collectFreeIdents(v.Value, bound, out)
	case *ast.TupleLit:
		for _, el := range v.Elems {
			collectFreeIdents(el, bound, out)
		}
	case *ast.ArrayLit:
		for _, el := range v.Elems {
			collectFreeIdents(el, bound, out)
		}
	}
}

func cloneBoundSet(bound map[string]bool) map[string]bool {
	clone := make(map[string]bool, len(bound)+4)
	for k, v := range bound {
		clone[k] = v
	}
	return clone
}

func bindPatternNames(p ast.Pattern, bound map[string]bool) {
	switch v := p.(type) {
	case *ast.IdentPattern:
		bound[v.Name] = true
		if v.SubPat != nil {
			bindPatternNames(v.SubPat, bound)
		}
	case *ast.TuplePattern:
		for _, e := range v.Elems {
			bindPatternNames(e, bound)
		}
	case *ast.StructPattern:
		for _, f := range v.Fields {
			bindPatternNames(f.Pattern, bound)
		}
	case *ast.EnumPattern:
		for _, f := range v.Fields {
			bindPatternNames(f, bound)
		}
	}
}
