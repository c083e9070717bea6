package types

import "fmt"

// UnifyError reports a type mismatch discovered during unification. The
// checker (internal/checker) wraps this into a diag.Diagnostic with a
// span; internal/types itself knows nothing about source positions.
type UnifyError struct {
	Left, Right Type
	Reason      string
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s: %s", e.Left.String(), e.Right.String(), e.Reason)
}

// Substitution is the unifier's table of inference-variable bindings,
// keyed by Var.ID, with path compression applied on lookup so repeated
// Resolve calls on the same chain flatten toward O(1).
type Substitution struct {
	bindings map[int]Type
}

// NewSubstitution builds an empty substitution table.
func NewSubstitution() *Substitution {
	return &Substitution{bindings: make(map[int]Type)}
}

// Resolve follows variable bindings to a fixed point, compressing the
// chain it walked so later lookups are O(1).
func (s *Substitution) Resolve(t Type) Type {
	v, ok := t.(*Var)
	if !ok {
		return t
	}
	visited := []int{v.ID}
	cur, bound := s.bindings[v.ID]
	for bound {
		if nv, ok := cur.(*Var); ok {
			visited = append(visited, nv.ID)
			cur, bound = s.bindings[nv.ID]
			continue
		}
		break
	}
	if !bound {
		return t
	}
	for _, id := range visited {
		s.bindings[id] = cur
	}
	return cur
}

// Bind records id := t in the table.
func (s *Substitution) Bind(id int, t Type) { s.bindings[id] = t }

// Apply recursively substitutes every Var in t using the current table.
func (s *Substitution) Apply(t Type) Type {
	resolved := s.Resolve(t)
	return resolved.Substitute(s.asMap())
}

func (s *Substitution) asMap() map[int]Type {
	m := make(map[int]Type, len(s.bindings))
	for id, t := range s.bindings {
		m[id] = s.Resolve(t)
	}
	return m
}

// Unifier carries the mutable substitution table across a sequence of
// Unify calls within one type-checking pass.
type Unifier struct {
	Sub      *Substitution
	nextVar  int
}

// NewUnifier creates a fresh unifier with an empty substitution table.
func NewUnifier() *Unifier {
	return &Unifier{Sub: NewSubstitution()}
}

// Fresh allocates a new unbound Var.
func (u *Unifier) Fresh() *Var {
	v := &Var{ID: u.nextVar}
	u.nextVar++
	return v
}

// Unify equates t1 and t2, extending the substitution table in place.
// Handles Never absorption, Linear/Affine transparency, and Fn
// structural unification with effect-set equality.
func (u *Unifier) Unify(t1, t2 Type) error {
	t1 = u.Sub.Resolve(t1)
	t2 = u.Sub.Resolve(t2)

	if t1.Equals(t2) {
		return nil
	}

	if _, ok := t1.(*NeverType); ok {
		return nil
	}
	if _, ok := t2.(*NeverType); ok {
		return nil
	}

	if v1, ok := t1.(*Var); ok {
		return u.bindVar(v1, t2)
	}
	if v2, ok := t2.(*Var); ok {
		return u.bindVar(v2, t1)
	}

	// Refinement transparency: Linear(T)/Affine(T) unify with T (or with
	// each other's element) in ordinary unification contexts; usage
	// discipline is enforced separately by the checker.
	if l1, ok := t1.(*Linear); ok {
		return u.Unify(l1.Elem, t2)
	}
	if l2, ok := t2.(*Linear); ok {
		return u.Unify(t1, l2.Elem)
	}
	if a1, ok := t1.(*Affine); ok {
		return u.Unify(a1.Elem, t2)
	}
	if a2, ok := t2.(*Affine); ok {
		return u.Unify(t1, a2.Elem)
	}

	switch v1 := t1.(type) {
	case *Primitive:
		v2, ok := t2.(*Primitive)
		if !ok || v1.Kind != v2.Kind {
			return &UnifyError{t1, t2, "primitive mismatch"}
		}
		return nil

	case *Array:
		v2, ok := t2.(*Array)
		if !ok {
			return &UnifyError{t1, t2, "not an array"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *ConstArray:
		v2, ok := t2.(*ConstArray)
		if !ok {
			return &UnifyError{t1, t2, "not a const array"}
		}
		if !v1.N.Equals(v2.N) {
			return &UnifyError{t1, t2, "const array size mismatch"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *Map:
		v2, ok := t2.(*Map)
		if !ok {
			return &UnifyError{t1, t2, "not a map"}
		}
		if err := u.Unify(v1.Key, v2.Key); err != nil {
			return err
		}
		return u.Unify(v1.Value, v2.Value)

	case *Tuple:
		v2, ok := t2.(*Tuple)
		if !ok || len(v1.Elems) != len(v2.Elems) {
			return &UnifyError{t1, t2, "tuple arity mismatch"}
		}
		for i := range v1.Elems {
			if err := u.Unify(v1.Elems[i], v2.Elems[i]); err != nil {
				return err
			}
		}
		return nil

	case *Optional:
		v2, ok := t2.(*Optional)
		if !ok {
			return &UnifyError{t1, t2, "not optional"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *Result:
		v2, ok := t2.(*Result)
		if !ok {
			return &UnifyError{t1, t2, "not a result"}
		}
		if err := u.Unify(v1.Ok, v2.Ok); err != nil {
			return err
		}
		return u.Unify(v1.Err, v2.Err)

	case *Ref:
		v2, ok := t2.(*Ref)
		if !ok {
			return &UnifyError{t1, t2, "not a ref"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *RefMut:
		v2, ok := t2.(*RefMut)
		if !ok {
			return &UnifyError{t1, t2, "not a mut ref"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *Slice:
		v2, ok := t2.(*Slice)
		if !ok {
			return &UnifyError{t1, t2, "not a slice"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *SliceMut:
		v2, ok := t2.(*SliceMut)
		if !ok {
			return &UnifyError{t1, t2, "not a mut slice"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *Pointer:
		v2, ok := t2.(*Pointer)
		if !ok || v1.Mut != v2.Mut {
			return &UnifyError{t1, t2, "pointer kind mismatch"}
		}
		return u.Unify(v1.Elem, v2.Elem)

	case *Fn:
		return u.unifyFn(v1, t2)

	case *Named:
		v2, ok := t2.(*Named)
		if !ok || v1.Name != v2.Name || len(v1.Generics) != len(v2.Generics) {
			return &UnifyError{t1, t2, "named type mismatch"}
		}
		for i := range v1.Generics {
			if err := u.Unify(v1.Generics[i], v2.Generics[i]); err != nil {
				return err
			}
		}
		return nil

	case *Vector:
		v2, ok := t2.(*Vector)
		if !ok || v1.Lanes != v2.Lanes {
			return &UnifyError{t1, t2, "vector lane-width mismatch"}
		}
		return u.Unify(v1.Element, v2.Element)

	case *Generic:
		v2, ok := t2.(*Generic)
		if !ok || v1.Name != v2.Name {
			return &UnifyError{t1, t2, "generic parameter mismatch"}
		}
		return nil

	default:
		return &UnifyError{t1, t2, fmt.Sprintf("unsupported unification for %T", t1)}
	}
}

// unifyFn implements structural param/return unification plus an
// effect-set check: the two effect sets must be equal; no union is
// taken.
func (u *Unifier) unifyFn(f1 *Fn, t2 Type) error {
	f2, ok := t2.(*Fn)
	if !ok || len(f1.Params) != len(f2.Params) {
		return &UnifyError{f1, t2, "function type mismatch"}
	}
	for i := range f1.Params {
		if err := u.Unify(f1.Params[i], f2.Params[i]); err != nil {
			return err
		}
	}
	if err := u.Unify(f1.Return, f2.Return); err != nil {
		return err
	}
	if f1.Effects != f2.Effects {
		return &UnifyError{f1, t2, fmt.Sprintf("effect mismatch: {%s} vs {%s}", f1.Effects, f2.Effects)}
	}
	return nil
}

func (u *Unifier) bindVar(v *Var, t Type) error {
	if occurs(v.ID, t, u.Sub) {
		return &UnifyError{v, t, "occurs check failed"}
	}
	u.Sub.Bind(v.ID, t)
	return nil
}

func occurs(id int, t Type, sub *Substitution) bool {
	t = sub.Resolve(t)
	switch v := t.(type) {
	case *Var:
		return v.ID == id
	case *Array:
		return occurs(id, v.Elem, sub)
	case *ConstArray:
		return occurs(id, v.Elem, sub)
	case *Map:
		return occurs(id, v.Key, sub) || occurs(id, v.Value, sub)
	case *Tuple:
		for _, e := range v.Elems {
			if occurs(id, e, sub) {
				return true
			}
		}
		return false
	case *Optional:
		return occurs(id, v.Elem, sub)
	case *Result:
		return occurs(id, v.Ok, sub) || occurs(id, v.Err, sub)
	case *Ref:
		return occurs(id, v.Elem, sub)
	case *RefMut:
		return occurs(id, v.Elem, sub)
	case *Slice:
		return occurs(id, v.Elem, sub)
	case *SliceMut:
		return occurs(id, v.Elem, sub)
	case *Pointer:
		return occurs(id, v.Elem, sub)
	case *Fn:
		for _, p := range v.Params {
			if occurs(id, p, sub) {
				return true
			}
		}
		return occurs(id, v.Return, sub)
	case *Named:
		for _, g := range v.Generics {
			if occurs(id, g, sub) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// DefaultNumeric resolves an unbound numeric Var to I64: a numeric Var
// still unresolved at the end of expression checking defaults to I64
// rather than being left ambiguous. Call after all unification for an expression
// has completed.
func (u *Unifier) DefaultNumeric(t Type, isNumericVar func(id int) bool) Type {
	resolved := u.Sub.Resolve(t)
	if v, ok := resolved.(*Var); ok && isNumericVar(v.ID) {
		u.Sub.Bind(v.ID, &Primitive{Kind: I64})
		return &Primitive{Kind: I64}
	}
	return resolved
}
