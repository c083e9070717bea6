package ast

import "github.com/vaislang/vais/internal/diag"

// Type is the sum type of type-annotation nodes written in source: Named |
// Tuple | Array | ConstArray | Map | Optional | Result | Ref | RefMut |
// Slice | Pointer | FnType | DynTrait | ImplTrait | Generic | Unit.
// These are surface annotations, distinct from the resolved
// types internal/types builds during checking.
type Type interface {
	Node
	typeNode()
}

func (*NamedType) typeNode()     {}
func (*TupleType) typeNode()     {}
func (*ArrayType) typeNode()     {}
func (*ConstArrayType) typeNode() {}
func (*MapType) typeNode()       {}
func (*OptionalType) typeNode()  {}
func (*ResultType) typeNode()    {}
func (*RefType) typeNode()       {}
func (*RefMutType) typeNode()    {}
func (*SliceType) typeNode()     {}
func (*PointerType) typeNode()   {}
func (*FnType) typeNode()        {}
func (*DynTraitType) typeNode()  {}
func (*ImplTraitType) typeNode() {}
func (*GenericType) typeNode()   {}
func (*UnitType) typeNode()      {}

// NamedType is a nominal type reference, optionally parameterized:
// `int`, `string`, `Option<T>`, `MyStruct<K, V>`.
type NamedType struct {
	base
	Name string
	Args []Type
}

func NewNamedType(span diag.Span, name string, args []Type) *NamedType {
	return &NamedType{base: NewBase(span), Name: name, Args: args}
}

type TupleType struct {
	base
	Elems []Type
}

func NewTupleType(span diag.Span, elems []Type) *TupleType {
	return &TupleType{base: NewBase(span), Elems: elems}
}

// ArrayType is a dynamically-sized array annotation `[T]`.
type ArrayType struct {
	base
	Elem Type
}

func NewArrayType(span diag.Span, elem Type) *ArrayType { return &ArrayType{base: NewBase(span), Elem: elem} }

// ConstArrayType is a fixed-size array `[T; N]`, where N may itself be a
// const generic parameter resolved at checking time.
type ConstArrayType struct {
	base
	Elem Type
	Size Expr
}

func NewConstArrayType(span diag.Span, elem Type, size Expr) *ConstArrayType {
	return &ConstArrayType{base: NewBase(span), Elem: elem, Size: size}
}

type MapType struct {
	base
	Key, Value Type
}

func NewMapType(span diag.Span, key, value Type) *MapType {
	return &MapType{base: NewBase(span), Key: key, Value: value}
}

// OptionalType is `T?`, sugar for `Option<T>`.
type OptionalType struct {
	base
	Elem Type
}

func NewOptionalType(span diag.Span, elem Type) *OptionalType {
	return &OptionalType{base: NewBase(span), Elem: elem}
}

// ResultType is `T ! E`, sugar for `Result<T, E>`.
type ResultType struct {
	base
	Ok, Err Type
}

func NewResultType(span diag.Span, ok, err Type) *ResultType {
	return &ResultType{base: NewBase(span), Ok: ok, Err: err}
}

type RefType struct {
	base
	Elem Type
}

func NewRefType(span diag.Span, elem Type) *RefType { return &RefType{base: NewBase(span), Elem: elem} }

type RefMutType struct {
	base
	Elem Type
}

func NewRefMutType(span diag.Span, elem Type) *RefMutType {
	return &RefMutType{base: NewBase(span), Elem: elem}
}

type SliceType struct {
	base
	Elem Type
}

func NewSliceType(span diag.Span, elem Type) *SliceType {
	return &SliceType{base: NewBase(span), Elem: elem}
}

type PointerType struct {
	base
	Elem  Type
	Mut   bool
}

func NewPointerType(span diag.Span, elem Type, mut bool) *PointerType {
	return &PointerType{base: NewBase(span), Elem: elem, Mut: mut}
}

// FnType is a first-class function type `fn(T, U) -> V`.
type FnType struct {
	base
	Params []Type
	Return Type
}

func NewFnType(span diag.Span, params []Type, ret Type) *FnType {
	return &FnType{base: NewBase(span), Params: params, Return: ret}
}

// DynTraitType is a dynamically-dispatched trait object `dyn Trait`.
// Object-safety is checked against the referenced trait.
type DynTraitType struct {
	base
	Trait    string
	Generics []Type
}

func NewDynTraitType(span diag.Span, trait string, generics []Type) *DynTraitType {
	return &DynTraitType{base: NewBase(span), Trait: trait, Generics: generics}
}

// ImplTraitType is an opaque return-position type `impl Trait`, resolved to
// a concrete type during checking without exposing it to callers.
type ImplTraitType struct {
	base
	Trait    string
	Generics []Type
}

func NewImplTraitType(span diag.Span, trait string, generics []Type) *ImplTraitType {
	return &ImplTraitType{base: NewBase(span), Trait: trait, Generics: generics}
}

// GenericType is a bare reference to an in-scope generic parameter, e.g.
// `T` inside `fn identity<T>(x: T) -> T`.
type GenericType struct {
	base
	Name string
}

func NewGenericType(span diag.Span, name string) *GenericType {
	return &GenericType{base: NewBase(span), Name: name}
}

// UnitType is `()`, the zero-information type.
type UnitType struct {
	base
}

func NewUnitType(span diag.Span) *UnitType { return &UnitType{base: NewBase(span)} }
