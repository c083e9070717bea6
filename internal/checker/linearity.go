package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// useKind tags the position a linearity-tracked variable occurs in:
// useMove for a consuming position (a call or method-call argument, a
// let initializer, a return value, a block tail, a struct/tuple/array
// literal element, a match subject or arm body), useRead for the rest.
// walkLinearExpr threads the tag through but does not count by it:
// every occurrence of a tracked variable is one use.
type useKind int

const (
	useRead useKind = iota
	useMove
)

// usageTracker counts uses of Linear/Affine-typed local variables across a
// single function body. It does not attempt full control-flow-sensitive
// path analysis; instead it
// conservatively counts every branch of an if/match as if it executes, so
// a value moved in one arm and read in a sibling arm is flagged even though
// at runtime only one arm runs. This errs toward over-reporting rather than
// missing a genuine double-move.
type usageTracker struct {
	linear map[string]bool // true if Linear (exactly-once), false if Affine (at-most-once)
	counts map[string]int
	spans  map[string]diag.Span
}

// checkUsageDiscipline walks fn's body tracking every Linear/Affine
// parameter and local binding, reporting E029 (use after move) when a
// tracked variable occurs a second time, whether as a read or a move,
// and W002 when a Linear value never occurs at all.
func (c *Checker) checkUsageDiscipline(fn *ast.Function) error {
	if fn.Body == nil {
		return nil
	}
	t := &usageTracker{
		linear: make(map[string]bool),
		counts: make(map[string]int),
		spans:  make(map[string]diag.Span),
	}
	for _, p := range fn.Params {
		if p.IsSelf || p.Type == nil {
			continue
		}
		resolved := c.resolveAstType(p.Type)
		switch resolved.(type) {
		case *types.Linear:
			t.linear[p.Name] = true
			t.spans[p.Name] = fn.Span()
		case *types.Affine:
			t.linear[p.Name] = false
			t.spans[p.Name] = fn.Span()
		}
	}
	if err := c.walkLinearBlock(t, fn.Body); err != nil {
		return err
	}
	for name, isLinear := range t.linear {
		if isLinear && t.counts[name] == 0 {
			if err := c.report(diag.New(diag.W002, t.spans[name],
				"linear value %q is never used; it must be consumed exactly once", name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) walkLinearBlock(t *usageTracker, b *ast.Block) error {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			if err := c.walkLinearExpr(t, s.Value, useMove); err != nil {
				return err
			}
			if ident, ok := s.Pattern.(*ast.IdentPattern); ok && s.Type != nil {
				switch c.resolveAstType(s.Type).(type) {
				case *types.Linear:
					t.linear[ident.Name] = true
					t.spans[ident.Name] = s.Span()
				case *types.Affine:
					t.linear[ident.Name] = false
					t.spans[ident.Name] = s.Span()
				}
			}
		case *ast.ExprStmt:
			if err := c.walkLinearExpr(t, s.Value, useRead); err != nil {
				return err
			}
		case *ast.ReturnStmt:
			if s.Value != nil {
				if err := c.walkLinearExpr(t, s.Value, useMove); err != nil {
					return err
				}
			}
		case *ast.DeferStmt:
			if err := c.walkLinearExpr(t, s.Value, useRead); err != nil {
				return err
			}
		}
	}
	if b.Tail != nil {
		return c.walkLinearExpr(t, b.Tail, useMove)
	}
	return nil
}

// walkLinearExpr recurses through e, and whenever it finds a bare
// ast.Ident tracked by t, records a use. kind marks a consuming
// position (useMove) or a non-consuming one (useRead), but the count
// ignores it: any second occurrence of a tracked value, read or move,
// is reported as E029.
func (c *Checker) walkLinearExpr(t *usageTracker, e ast.Expr, kind useKind) error {
	switch v := e.(type) {
	case *ast.Ident:
		if _, tracked := t.linear[v.Name]; !tracked {
			return nil
		}
		t.counts[v.Name]++
		if t.counts[v.Name] > 1 {
			return c.report(diag.New(diag.E029, v.Span(),
				"use of %q after it was already moved", v.Name))
		}
		return nil
	case *ast.Binary:
		if err := c.walkLinearExpr(t, v.Left, useRead); err != nil {
			return err
		}
		return c.walkLinearExpr(t, v.Right, useRead)
	case *ast.Unary:
		return c.walkLinearExpr(t, v.Operand, useRead)
	case *ast.Call:
		if err := c.walkLinearExpr(t, v.Callee, useRead); err != nil {
			return err
		}
		for _, a := range v.Args {
			if err := c.walkLinearExpr(t, a, useMove); err != nil {
				return err
			}
		}
		return nil
	case *ast.MethodCall:
		if err := c.walkLinearExpr(t, v.Receiver, useRead); err != nil {
			return err
		}
		for _, a := range v.Args {
			if err := c.walkLinearExpr(t, a, useMove); err != nil {
				return err
			}
		}
		return nil
	case *ast.FieldExpr:
		return c.walkLinearExpr(t, v.Receiver, useRead)
	case *ast.IndexExpr:
		if err := c.walkLinearExpr(t, v.Receiver, useRead); err != nil {
			return err
		}
		return c.walkLinearExpr(t, v.Index, useRead)
	case *ast.Block:
		return c.walkLinearBlock(t, v)
	case *ast.If:
		if err := c.walkLinearExpr(t, v.Cond, useRead); err != nil {
			return err
		}
		if err := c.walkLinearBlock(t, v.Then); err != nil {
			return err
		}
		if v.ElseBlock != nil {
			return c.walkLinearBlock(t, v.ElseBlock)
		}
		if v.ElseIf != nil {
			return c.walkLinearExpr(t, v.ElseIf, kind)
		}
		return nil
	case *ast.Match:
		if err := c.walkLinearExpr(t, v.Subject, useMove); err != nil {
			return err
		}
		for _, arm := range v.Arms {
			if arm.Guard != nil {
				if err := c.walkLinearExpr(t, arm.Guard, useRead); err != nil {
					return err
				}
			}
			if err := c.walkLinearExpr(t, arm.Body, useMove); err != nil {
				return err
			}
		}
		return nil
	case *ast.While:
		if err := c.walkLinearExpr(t, v.Cond, useRead); err != nil {
			return err
		}
		return c.walkLinearBlock(t, v.Body)
	case *ast.Loop:
		return c.walkLinearBlock(t, v.Body)
	case *ast.Assign:
		if err := c.walkLinearExpr(t, v.Target, useRead); err != nil {
			return err
		}
		return c.walkLinearExpr(t, v.Value, useMove)
	case *ast.AssignOp:
		if err := c.walkLinearExpr(t, v.Target, useRead); err != nil {
			return err
		}
		return c.walkLinearExpr(t, v.Value, useRead)
	case *ast.StructLit:
		for _, f := range v.Fields {
			if err := c.walkLinearExpr(t, f.Value, useMove); err != nil {
				return err
			}
		}
		if v.Spread != nil {
			return c.walkLinearExpr(t, v.Spread, useRead)
		}
		return nil
	case *ast.Cast:
		return c.walkLinearExpr(t, v.Value, useRead)
	case *ast.Try:
		return c.walkLinearExpr(t, v.Value, useMove)
	case *ast.Unwrap:
		return c.walkLinearExpr(t, v.Value, useMove)
	case *ast.TupleLit:
		for _, el := range v.Elems {
			if err := c.walkLinearExpr(t, el, useMove); err != nil {
				return err
			}
		}
		return nil
	case *ast.ArrayLit:
		for _, el := range v.Elems {
			if err := c.walkLinearExpr(t, el, useMove); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
