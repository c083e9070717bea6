package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// checkFunction type-checks a function body in a fresh child scope seeded
// with its parameters, then runs the refinement usage-discipline pass over
// the body and checks for unused `let` bindings.
func (c *Checker) checkFunction(fn *ast.Function) error {
	if fn.Body == nil {
		return nil // trait method signature with no default body
	}
	scope := c.Env.Child()
	var selfType types.Type
	for _, p := range fn.Params {
		if p.IsSelf {
			selfType = &types.Generic{Name: "Self"}
			scope.Define("self", &types.TypeScheme{Body: selfType})
			continue
		}
		scope.Define(p.Name, &types.TypeScheme{Body: c.resolveAstType(p.Type)})
	}
	for _, g := range fn.Generics {
		scope.Define(g.Name, &types.TypeScheme{Body: &types.Generic{Name: g.Name}})
	}

	bodyT, err := c.inferExpr(scope, fn.Body)
	if err != nil {
		return err
	}
	if fn.Return != nil {
		declared := c.resolveAstType(fn.Return)
		if err := c.unifyOrReport(fn.Body.Span(), declared, bodyT); err != nil {
			return err
		}
	}

	if err := c.checkUsageDiscipline(fn); err != nil {
		return err
	}
	c.checkUnusedVars(fn)
	return nil
}

// checkUnusedVars walks a function body for `let` bindings whose name
// doesn't start with `_` and are never referenced again, emitting W001.
// This is a shallow, single-scope heuristic: it does not track
// cross-block shadowing precisely, trading completeness for a pass
// that stays linear in the body size.
func (c *Checker) checkUnusedVars(fn *ast.Function) {
	if fn.Body == nil {
		return
	}
	reads := make(map[string]int)
	collectIdentReads(fn.Body, reads)
	walkLetBindings(fn.Body, func(name string, span diag.Span) {
		if name == "" || name[0] == '_' {
			return
		}
		if reads[name] == 0 {
			c.diagnostics = append(c.diagnostics, newUnusedVar(span, name))
		}
	})
}

func walkLetBindings(b *ast.Block, visit func(name string, span diag.Span)) {
	for _, stmt := range b.Stmts {
		if let, ok := stmt.(*ast.LetStmt); ok {
			if ident, ok := let.Pattern.(*ast.IdentPattern); ok {
				visit(ident.Name, let.Span())
			}
		}
	}
}

// collectIdentReads is a crude free-variable-use counter: it recurses over
// expression positions that are not themselves a `let` LHS and tallies
// ast.Ident occurrences by name.
func collectIdentReads(e ast.Expr, reads map[string]int) {
	switch v := e.(type) {
	case *ast.Ident:
		reads[v.Name]++
	case *ast.Block:
		for _, s := range v.Stmts {
			switch st := s.(type) {
			case *ast.LetStmt:
				collectIdentReads(st.Value, reads)
			case *ast.ExprStmt:
				collectIdentReads(st.Value, reads)
			case *ast.ReturnStmt:
				if st.Value != nil {
					collectIdentReads(st.Value, reads)
				}
			case *ast.DeferStmt:
				collectIdentReads(st.Value, reads)
			}
		}
		if v.Tail != nil {
			collectIdentReads(v.Tail, reads)
		}
	case *ast.Binary:
		collectIdentReads(v.Left, reads)
		collectIdentReads(v.Right, reads)
	case *ast.Unary:
		collectIdentReads(v.Operand, reads)
	case *ast.Call:
		collectIdentReads(v.Callee, reads)
		for _, a := range v.Args {
			collectIdentReads(a, reads)
		}
	case *ast.MethodCall:
		collectIdentReads(v.Receiver, reads)
		for _, a := range v.Args {
			collectIdentReads(a, reads)
		}
	case *ast.FieldExpr:
		collectIdentReads(v.Receiver, reads)
	case *ast.IndexExpr:
		collectIdentReads(v.Receiver, reads)
		collectIdentReads(v.Index, reads)
	case *ast.If:
		collectIdentReads(v.Cond, reads)
		collectIdentReads(v.Then, reads)
		if v.ElseBlock != nil {
			collectIdentReads(v.ElseBlock, reads)
		}
		if v.ElseIf != nil {
			collectIdentReads(v.ElseIf, reads)
		}
	case *ast.Match:
		collectIdentReads(v.Subject, reads)
		for _, arm := range v.Arms {
			if arm.Guard != nil {
				collectIdentReads(arm.Guard, reads)
			}
			collectIdentReads(arm.Body, reads)
		}
	case *ast.While:
		collectIdentReads(v.Cond, reads)
		collectIdentReads(v.Body, reads)
	case *ast.Loop:
		collectIdentReads(v.Body, reads)
	case *ast.Assign:
		collectIdentReads(v.Target, reads)
		collectIdentReads(v.Value, reads)
	case *ast.AssignOp:
		collectIdentReads(v.Target, reads)
		collectIdentReads(v.Value, reads)
	case *ast.Lambda:
		collectIdentReads(v.Body, reads)
	}
}
