// Package checker implements the Vais type checker: type
// environment construction, HM-style unification with effect inference,
// object safety, specialization, comptime evaluation, and refinement
// (linear/affine) usage-discipline checking.
package checker

import (
	"go.uber.org/multierr"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/types"
)

// TraitInfo is the checker's view of a declared trait: its methods and
// supertraits, consulted by object-safety and dispatch resolution.
type TraitInfo struct {
	Decl        *ast.TraitDecl
	ObjectSafe  bool
	Violations  []string
}

// ImplInfo is the checker's view of one `impl` block, classified for
// specialization resolution.
type ImplInfo struct {
	Decl         *ast.ImplDecl
	Specificity  Specificity
	ForTypeName  string // "" for blanket impls (ForType is a bare generic)
}

// Checker holds all state accumulated while checking one module: the
// global type environment, collected diagnostics, and the declared
// traits/impls consulted by later passes.
type Checker struct {
	Env           *types.Env
	Unifier       *types.Unifier
	Structs       map[string]*ast.StructDecl
	Enums         map[string]*ast.EnumDecl
	Traits        map[string]*TraitInfo
	Impls         map[string][]*ImplInfo // keyed by trait name ("" = inherent)
	Aliases       map[string]*ast.TypeAlias

	// MultiError toggles multi-error collection mode.
	// Default is fail-fast (false): CheckModule returns on the first error.
	MultiError bool

	diagnostics diag.List
	firstErr    *diag.Diagnostic
}

// New creates an empty Checker ready to build its environment from a module.
func New() *Checker {
	return &Checker{
		Env:     types.NewEnv(),
		Unifier: types.NewUnifier(),
		Structs: make(map[string]*ast.StructDecl),
		Enums:   make(map[string]*ast.EnumDecl),
		Traits:  make(map[string]*TraitInfo),
		Impls:   make(map[string][]*ImplInfo),
		Aliases: make(map[string]*ast.TypeAlias),
	}
}

// report records a diagnostic. In fail-fast mode, the first error aborts
// the surrounding pass by returning a non-nil error to the caller; in
// multi-error mode, checking continues and every error is collected.
func (c *Checker) report(d *diag.Diagnostic) error {
	c.diagnostics = append(c.diagnostics, d)
	if d.Severity == diag.SeverityWarning {
		return nil
	}
	if c.firstErr == nil {
		c.firstErr = d
	}
	if c.MultiError {
		return nil
	}
	return d
}

// Diagnostics returns every diagnostic collected so far.
func (c *Checker) Diagnostics() diag.List { return c.diagnostics }

// FirstError returns the primary error, or nil if none occurred.
func (c *Checker) FirstError() *diag.Diagnostic { return c.firstErr }

// CheckModule runs the full pipeline over a parsed module: declaration
// collection, object-safety/specialization analysis, then per-function
// body checking. Errors are aggregated with multierr so a caller gets
// every independent failure in one value while Diagnostics() still
// carries the richer {code,span,help} form for driver/LSP consumption.
func (c *Checker) CheckModule(mod *ast.Module) error {
	var errs error

	if err := c.collectDeclarations(mod.Items); err != nil {
		errs = multierr.Append(errs, err)
		if !c.MultiError {
			return errs
		}
	}

	c.resolveObjectSafety()
	if err := c.resolveSpecialization(); err != nil {
		errs = multierr.Append(errs, err)
		if !c.MultiError {
			return errs
		}
	}

	for _, item := range mod.Items {
		if err := c.checkItem(item); err != nil {
			errs = multierr.Append(errs, err)
			if !c.MultiError {
				return errs
			}
		}
	}

	return errs
}

func (c *Checker) collectDeclarations(items []ast.Item) error {
	for _, item := range items {
		switch it := item.(type) {
		case *ast.StructDecl:
			if _, dup := c.Structs[it.Name]; dup {
				if err := c.report(newDuplicate(it.Span(), it.Name)); err != nil {
					return err
				}
				continue
			}
			c.Structs[it.Name] = it
		case *ast.EnumDecl:
			if _, dup := c.Enums[it.Name]; dup {
				if err := c.report(newDuplicate(it.Span(), it.Name)); err != nil {
					return err
				}
				continue
			}
			c.Enums[it.Name] = it
		case *ast.TraitDecl:
			c.Traits[it.Name] = &TraitInfo{Decl: it}
		case *ast.TypeAlias:
			c.Aliases[it.Name] = it
		case *ast.ImplDecl:
			info := &ImplInfo{Decl: it, Specificity: classifySpecificity(it)}
			if nt, ok := it.ForType.(*ast.NamedType); ok {
				info.ForTypeName = nt.Name
			}
			c.Impls[it.Trait] = append(c.Impls[it.Trait], info)
		case *ast.Function:
			scheme := c.schemeForSignature(it)
			c.Env.Define(it.Name, scheme)
		case *ast.ModuleDecl:
			if err := c.collectDeclarations(it.Items); err != nil {
				return err
			}
		case *ast.ConstDecl, *ast.GlobalDecl, *ast.MacroDef:
			// Consts/globals are not bound in Env: checkItem only infers
			// their value types. Macro defs carry no type to collect.
		}
	}
	return nil
}

// schemeForSignature builds a TypeScheme for a function declaration from
// its AST parameter/return annotations. The scheme quantifies no
// variables: a declared generic such as T resolves through
// resolveAstType to a types.Named of that name.
func (c *Checker) schemeForSignature(fn *ast.Function) *types.TypeScheme {
	params := make([]types.Type, 0, len(fn.Params))
	for _, p := range fn.Params {
		if p.IsSelf {
			continue
		}
		params = append(params, c.resolveAstType(p.Type))
	}
	ret := types.Unit()
	if fn.Return != nil {
		ret = c.resolveAstType(fn.Return)
	}
	fnType := &types.Fn{Params: params, Return: ret, Effects: types.ParseEffects(fn.Effects)}

	quantified := make([]int, 0, len(fn.Generics))
	_ = quantified // generic params resolve to types.Named by name, not to Var IDs
	return &types.TypeScheme{Body: fnType}
}

func (c *Checker) checkItem(item ast.Item) error {
	switch it := item.(type) {
	case *ast.Function:
		return c.checkFunction(it)
	case *ast.TraitDecl:
		for _, m := range it.Methods {
			if m.Body != nil {
				if err := c.checkFunction(m); err != nil {
					return err
				}
			}
		}
	case *ast.ImplDecl:
		for _, m := range it.Methods {
			if err := c.checkFunction(m); err != nil {
				return err
			}
		}
	case *ast.ConstDecl:
		t, err := c.inferExpr(c.Env, it.Value)
		if err != nil {
			return err
		}
		if it.Type != nil {
			declared := c.resolveAstType(it.Type)
			if err := c.Unifier.Unify(t, declared); err != nil {
				if rerr := c.report(newMismatch(it.Value.Span(), declared, t)); rerr != nil {
					return rerr
				}
			}
		}
	case *ast.GlobalDecl:
		if _, err := c.inferExpr(c.Env, it.Value); err != nil {
			return err
		}
	case *ast.ModuleDecl:
		for _, sub := range it.Items {
			if err := c.checkItem(sub); err != nil {
				return err
			}
		}
	case *ast.MacroDef:
		// declaration only; invocation sites are checked by inferExpr's
		// *ast.MacroInvoke case, which always errors: macros are expanded
		// before type checking runs, so one surviving here means expansion
		// never ran.
	}
	return nil
}
