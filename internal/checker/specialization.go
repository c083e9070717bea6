package checker

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
)

// Specificity orders impls for method-resolution tie-breaking:
// Concrete > Bounded generic > Blanket.
type Specificity int

const (
	SpecBlanket Specificity = iota
	SpecGenericBounded
	SpecConcrete
)

func classifySpecificity(impl *ast.ImplDecl) Specificity {
	switch t := impl.ForType.(type) {
	case *ast.NamedType:
		return SpecConcrete
	case *ast.GenericType:
		for _, g := range impl.Generics {
			if g.Name == t.Name && len(g.Bounds) > 0 {
				return SpecGenericBounded
			}
		}
		return SpecBlanket
	default:
		return SpecBlanket
	}
}

// resolveSpecialization validates every trait's impl set for overlap:
// two impls for the same (trait, type) conflict unless one strictly
// dominates the other by specificity, and a negative impl conflicts with
// any positive impl for the same pair.
func (c *Checker) resolveSpecialization() error {
	for trait, impls := range c.Impls {
		for i := 0; i < len(impls); i++ {
			for j := i + 1; j < len(impls); j++ {
				a, b := impls[i], impls[j]
				if !implsOverlap(a, b) {
					continue
				}
				if a.Decl.Negative != b.Decl.Negative {
					if err := c.report(diag.New(diag.E043, a.Decl.Span(),
						"negative impl conflicts with positive impl of %q for the same type", trait).
						WithSecondary(b.Decl.Span())); err != nil {
						return err
					}
					continue
				}
				if a.Specificity == b.Specificity {
					if err := c.report(diag.New(diag.E042, a.Decl.Span(),
						"ambiguous specialization: impls of %q have incomparable specificity", trait).
						WithSecondary(b.Decl.Span())); err != nil {
						return err
					}
				}
				// Differing specificity is resolvable (the more specific
				// impl wins at method-resolution time); no diagnostic.
			}
		}
	}
	return nil
}

// implsOverlap reports whether two impls could both apply to some type.
// Concrete impls overlap only when they name the same type; anything
// involving a generic or blanket impl is conservatively treated as
// overlapping the same trait's other impls — some type could satisfy
// both.
func implsOverlap(a, b *ImplInfo) bool {
	if a.Specificity == SpecConcrete && b.Specificity == SpecConcrete {
		return a.ForTypeName != "" && a.ForTypeName == b.ForTypeName
	}
	return true
}

// resolveMethod picks the most specific applicable impl of typeName for
// method, following the same resolution-by-specificity rule. Ambiguity
// was already reported as a diagnostic during resolveSpecialization;
// here a tie keeps the first impl found so checking can continue. Within
// one trait's impl list that is the first declared; c.Impls is a map, so
// the order across different traits' lists is not defined.
func (c *Checker) resolveMethod(span diag.Span, typeName, method string) (*ImplInfo, *ast.Function, error) {
	var best *ImplInfo
	var bestFn *ast.Function
	for _, impls := range c.Impls {
		for _, impl := range impls {
			if impl.Decl.Negative || impl.ForTypeName != typeName {
				continue
			}
			for _, m := range impl.Decl.Methods {
				if m.Name != method {
					continue
				}
				if best == nil || impl.Specificity > best.Specificity {
					best, bestFn = impl, m
				}
			}
		}
	}
	return best, bestFn, nil
}
