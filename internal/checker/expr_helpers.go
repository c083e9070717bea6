package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/types"
)

func (c *Checker) inferBinary(env *types.Env, v *ast.Binary) (types.Type, error) {
	left, err := c.inferExpr(env, v.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.inferExpr(env, v.Right)
	if err != nil {
		return nil, err
	}
	switch v.Op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
		if err := c.unifyOrReport(v.Span(), left, right); err != nil {
			return nil, err
		}
		return &types.Primitive{Kind: types.Bool}, nil
	case ast.OpAnd, ast.OpOr:
		boolT := &types.Primitive{Kind: types.Bool}
		if err := c.unifyOrReport(v.Span(), boolT, left); err != nil {
			return nil, err
		}
		if err := c.unifyOrReport(v.Span(), boolT, right); err != nil {
			return nil, err
		}
		return boolT, nil
	default:
		if err := c.unifyOrReport(v.Span(), left, right); err != nil {
			return nil, err
		}
		return left, nil
	}
}

func (c *Checker) inferCall(env *types.Env, v *ast.Call) (types.Type, error) {
	calleeT, err := c.inferExpr(env, v.Callee)
	if err != nil {
		return nil, err
	}
	argTypes := make([]types.Type, len(v.Args))
	for i, a := range v.Args {
		at, err := c.inferExpr(env, a)
		if err != nil {
			return nil, err
		}
		argTypes[i] = at
	}
	fn, ok := types.Unwrap(calleeT).(*types.Fn)
	if !ok {
		if _, isUnknown := calleeT.(*types.UnknownType); !isUnknown {
			if err := c.report(newNotCallable(v.Span(), calleeT)); err != nil {
				return nil, err
			}
		}
		return &types.UnknownType{}, nil
	}
	if len(fn.Params) != len(argTypes) {
		if err := c.report(newArgCount(v.Span(), len(fn.Params), len(argTypes))); err != nil {
			return nil, err
		}
		return fn.Return, nil
	}
	for i, p := range fn.Params {
		if err := c.unifyOrReport(v.Args[i].Span(), p, argTypes[i]); err != nil {
			return nil, err
		}
	}
	return fn.Return, nil
}

// inferMethodCall resolves `recv.method(args)` against the impls collected
// for recv's nominal type, applying specialization to pick the winning
// impl when more than one is applicable.
func (c *Checker) inferMethodCall(env *types.Env, v *ast.MethodCall) (types.Type, error) {
	recv, err := c.inferExpr(env, v.Receiver)
	if err != nil {
		return nil, err
	}
	for _, a := range v.Args {
		if _, err := c.inferExpr(env, a); err != nil {
			return nil, err
		}
	}
	named, ok := types.Unwrap(recv).(*types.Named)
	if !ok {
		return &types.UnknownType{}, nil
	}
	impl, method, err := c.resolveMethod(v.Span(), named.Name, v.Method)
	if err != nil {
		return nil, err
	}
	if impl == nil {
		if err := c.report(newUndefinedFunction(v.Span(), v.Method)); err != nil {
			return nil, err
		}
		return &types.UnknownType{}, nil
	}
	if method.Return == nil {
		return types.Unit(), nil
	}
	return c.resolveAstType(method.Return), nil
}

func (c *Checker) inferField(env *types.Env, v *ast.FieldExpr) (types.Type, error) {
	recv, err := c.inferExpr(env, v.Receiver)
	if err != nil {
		return nil, err
	}
	named, ok := types.Unwrap(recv).(*types.Named)
	if !ok {
		return &types.UnknownType{}, nil
	}
	sd, ok := c.Structs[named.Name]
	if !ok {
		return &types.UnknownType{}, nil
	}
	for _, f := range sd.Fields {
		if f.Name == v.Name {
			return c.resolveAstType(f.Type), nil
		}
	}
	if err := c.report(newUndefinedVar(v.Span(), v.Name, nil)); err != nil {
		return nil, err
	}
	return &types.UnknownType{}, nil
}

func (c *Checker) inferBlock(env *types.Env, v *ast.Block) (types.Type, error) {
	inner := env.Child()
	for _, stmt := range v.Stmts {
		if err := c.checkStmt(inner, stmt); err != nil {
			return nil, err
		}
	}
	if v.Tail == nil {
		return types.Unit(), nil
	}
	return c.inferExpr(inner, v.Tail)
}

func (c *Checker) inferIf(env *types.Env, v *ast.If) (types.Type, error) {
	condT, err := c.inferExpr(env, v.Cond)
	if err != nil {
		return nil, err
	}
	if err := c.unifyOrReport(v.Cond.Span(), &types.Primitive{Kind: types.Bool}, condT); err != nil {
		return nil, err
	}
	thenT, err := c.inferExpr(env, v.Then)
	if err != nil {
		return nil, err
	}
	switch {
	case v.ElseBlock != nil:
		elseT, err := c.inferExpr(env, v.ElseBlock)
		if err != nil {
			return nil, err
		}
		if err := c.unifyOrReport(v.Span(), thenT, elseT); err != nil {
			return nil, err
		}
		return thenT, nil
	case v.ElseIf != nil:
		elseT, err := c.inferIf(env, v.ElseIf)
		if err != nil {
			return nil, err
		}
		if err := c.unifyOrReport(v.Span(), thenT, elseT); err != nil {
			return nil, err
		}
		return thenT, nil
	default:
		return types.Unit(), nil
	}
}

func (c *Checker) inferMatch(env *types.Env, v *ast.Match) (types.Type, error) {
	if _, err := c.inferExpr(env, v.Subject); err != nil {
		return nil, err
	}
	var result types.Type
	for _, arm := range v.Arms {
		armEnv := env.Child()
		c.bindPattern(armEnv, arm.Pattern)
		if arm.Guard != nil {
			if _, err := c.inferExpr(armEnv, arm.Guard); err != nil {
				return nil, err
			}
		}
		bodyT, err := c.inferExpr(armEnv, arm.Body)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = bodyT
			continue
		}
		if err := c.unifyOrReport(arm.Body.Span(), result, bodyT); err != nil {
			return nil, err
		}
	}
	if result == nil {
		return types.Unit(), nil
	}
	return result, nil
}

// bindPattern introduces every binding a pattern would make into env,
// each as a fresh inference variable (refined by unification against the
// matched subject in a fuller implementation; here each binding is
// independently inferable from subsequent use, matching the checker's
// conservative HM treatment of pattern variables).
func (c *Checker) bindPattern(env *types.Env, p ast.Pattern) {
	switch v := p.(type) {
	case *ast.IdentPattern:
		env.Define(v.Name, &types.TypeScheme{Body: c.Unifier.Fresh()})
		if v.SubPat != nil {
			c.bindPattern(env, v.SubPat)
		}
	case *ast.TuplePattern:
		for _, e := range v.Elems {
			c.bindPattern(env, e)
		}
	case *ast.StructPattern:
		for _, f := range v.Fields {
			c.bindPattern(env, f.Pattern)
		}
	case *ast.EnumPattern:
		for _, f := range v.Fields {
			c.bindPattern(env, f)
		}
	}
}

func (c *Checker) inferLambda(env *types.Env, v *ast.Lambda) (types.Type, error) {
	if err := c.checkLambdaCaptures(env, v); err != nil {
		return nil, err
	}
	inner := env.Child()
	params := make([]types.Type, len(v.Params))
	for i, p := range v.Params {
		pt := c.resolveAstType(p.Type)
		if p.Type == nil {
			pt = c.Unifier.Fresh()
		}
		params[i] = pt
		inner.Define(p.Name, &types.TypeScheme{Body: pt})
	}
	bodyT, err := c.inferExpr(inner, v.Body)
	if err != nil {
		return nil, err
	}
	return &types.Fn{Params: params, Return: bodyT}, nil
}

func (c *Checker) inferStructLit(env *types.Env, v *ast.StructLit) (types.Type, error) {
	sd, ok := c.Structs[v.TypeName]
	if !ok {
		if err := c.report(newUndefinedType(v.Span(), v.TypeName)); err != nil {
			return nil, err
		}
		return &types.UnknownType{}, nil
	}
	fieldTypes := make(map[string]types.Type, len(sd.Fields))
	for _, f := range sd.Fields {
		fieldTypes[f.Name] = c.resolveAstType(f.Type)
	}
	for _, lf := range v.Fields {
		valT, err := c.inferExpr(env, lf.Value)
		if err != nil {
			return nil, err
		}
		if declared, ok := fieldTypes[lf.Name]; ok {
			if err := c.unifyOrReport(lf.Value.Span(), declared, valT); err != nil {
				return nil, err
			}
		}
	}
	if v.Spread != nil {
		if _, err := c.inferExpr(env, v.Spread); err != nil {
			return nil, err
		}
	}
	return &types.Named{Name: v.TypeName}, nil
}

func (c *Checker) checkStmt(env *types.Env, s ast.Stmt) error {
	switch v := s.(type) {
	case *ast.LetStmt:
		valT, err := c.inferExpr(env, v.Value)
		if err != nil {
			return err
		}
		if v.Type != nil {
			declared := c.resolveAstType(v.Type)
			if err := c.unifyOrReport(v.Span(), declared, valT); err != nil {
				return err
			}
			valT = declared
		}
		c.bindLetPattern(env, v.Pattern, valT, v.Mutable)
		return nil
	case *ast.ExprStmt:
		_, err := c.inferExpr(env, v.Value)
		return err
	case *ast.ReturnStmt:
		if v.Value != nil {
			_, err := c.inferExpr(env, v.Value)
			return err
		}
		return nil
	case *ast.BreakStmt:
		if v.Value != nil {
			_, err := c.inferExpr(env, v.Value)
			return err
		}
		return nil
	case *ast.ContinueStmt:
		return nil
	case *ast.DeferStmt:
		_, err := c.inferExpr(env, v.Value)
		return err
	default:
		return nil
	}
}

func (c *Checker) bindLetPattern(env *types.Env, p ast.Pattern, t types.Type, mutable bool) {
	switch v := p.(type) {
	case *ast.IdentPattern:
		env.DefineMutable(v.Name, &types.TypeScheme{Body: t}, mutable)
	case *ast.WildcardPattern:
		// binds nothing
	default:
		c.bindPattern(env, p)
	}
}
