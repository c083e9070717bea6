package checker

import "github.com/vaislang/vais/internal/ast"
import "github.com/vaislang/vais/internal/types"

// resolveAstType lowers a surface ast.Type annotation to a resolved
// types.Type, expanding type aliases. Any other name that is not a
// primitive or Linear/Affine becomes a types.Named as written; it is not
// looked up among the collected structs/enums or declared generics.
func (c *Checker) resolveAstType(t ast.Type) types.Type {
	switch v := t.(type) {
	case nil:
		return types.Unit()
	case *ast.NamedType:
		return c.resolveNamed(v)
	case *ast.TupleType:
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = c.resolveAstType(e)
		}
		return &types.Tuple{Elems: elems}
	case *ast.ArrayType:
		return &types.Array{Elem: c.resolveAstType(v.Elem)}
	case *ast.ConstArrayType:
		return &types.ConstArray{Elem: c.resolveAstType(v.Elem), N: c.resolveConstExpr(v.Size)}
	case *ast.MapType:
		return &types.Map{Key: c.resolveAstType(v.Key), Value: c.resolveAstType(v.Value)}
	case *ast.OptionalType:
		return &types.Optional{Elem: c.resolveAstType(v.Elem)}
	case *ast.ResultType:
		return &types.Result{Ok: c.resolveAstType(v.Ok), Err: c.resolveAstType(v.Err)}
	case *ast.RefType:
		return &types.Ref{Elem: c.resolveAstType(v.Elem)}
	case *ast.RefMutType:
		return &types.RefMut{Elem: c.resolveAstType(v.Elem)}
	case *ast.SliceType:
		return &types.Slice{Elem: c.resolveAstType(v.Elem)}
	case *ast.PointerType:
		return &types.Pointer{Elem: c.resolveAstType(v.Elem), Mut: v.Mut}
	case *ast.FnType:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = c.resolveAstType(p)
		}
		return &types.Fn{Params: params, Return: c.resolveAstType(v.Return)}
	case *ast.DynTraitType:
		gens := make([]types.Type, len(v.Generics))
		for i, g := range v.Generics {
			gens[i] = c.resolveAstType(g)
		}
		return &types.DynTrait{Trait: v.Trait, Generics: gens}
	case *ast.ImplTraitType:
		return &types.ImplTrait{Bounds: []string{v.Trait}}
	case *ast.GenericType:
		return &types.Generic{Name: v.Name}
	case *ast.UnitType:
		return types.Unit()
	default:
		return &types.UnknownType{}
	}
}

var builtinPrims = map[string]types.Prim{
	"i8": types.I8, "i16": types.I16, "i32": types.I32, "i64": types.I64, "i128": types.I128,
	"u8": types.U8, "u16": types.U16, "u32": types.U32, "u64": types.U64, "u128": types.U128,
	"f32": types.F32, "f64": types.F64, "bool": types.Bool, "str": types.Str,
}

func (c *Checker) resolveNamed(n *ast.NamedType) types.Type {
	if kind, ok := builtinPrims[n.Name]; ok {
		return &types.Primitive{Kind: kind}
	}
	switch n.Name {
	case "Linear":
		if len(n.Args) == 1 {
			return &types.Linear{Elem: c.resolveAstType(n.Args[0])}
		}
	case "Affine":
		if len(n.Args) == 1 {
			return &types.Affine{Elem: c.resolveAstType(n.Args[0])}
		}
	}
	if alias, ok := c.Aliases[n.Name]; ok {
		return c.resolveAstType(alias.Type)
	}
	gens := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		gens[i] = c.resolveAstType(a)
	}
	return &types.Named{Name: n.Name, Generics: gens}
}

// resolveConstExpr lowers a const-generic size expression; non-literal
// expressions are preserved symbolically for later comptime evaluation.
func (c *Checker) resolveConstExpr(e ast.Expr) types.ResolvedConst {
	switch v := e.(type) {
	case *ast.IntLit:
		return types.ConstValue{Value: v.Value}
	case *ast.Ident:
		return types.ConstParam{Name: v.Name}
	case *ast.Unary:
		if v.Op == ast.OpNeg {
			return types.ConstNegate{Inner: c.resolveConstExpr(v.Operand)}
		}
	case *ast.Binary:
		if op, ok := binOpSymbol(v.Op); ok {
			return types.ConstBinOp{Op: op, Left: c.resolveConstExpr(v.Left), Right: c.resolveConstExpr(v.Right)}
		}
	}
	return types.ConstValue{Value: 0}
}

func binOpSymbol(op ast.BinaryOp) (string, bool) {
	switch op {
	case ast.OpAdd:
		return "+", true
	case ast.OpSub:
		return "-", true
	case ast.OpMul:
		return "*", true
	case ast.OpDiv:
		return "/", true
	case ast.OpMod:
		return "%", true
	default:
		return "", false
	}
}
