package ast

import "github.com/vaislang/vais/internal/diag"

// Item is the sum type of top-level (and nested module) declarations:
// Function | Struct | Enum | Trait | Impl | TypeAlias | Const | Global |
// Module | MacroDef.
type Item interface {
	Node
	itemNode()
}

func (*Function) itemNode()    {}
func (*StructDecl) itemNode()  {}
func (*EnumDecl) itemNode()    {}
func (*TraitDecl) itemNode()   {}
func (*ImplDecl) itemNode()    {}
func (*TypeAlias) itemNode()   {}
func (*ConstDecl) itemNode()   {}
func (*GlobalDecl) itemNode()  {}
func (*ModuleDecl) itemNode()  {}
func (*MacroDef) itemNode()    {}

// Param is a function/method parameter: name, declared type, and whether it
// is the receiver (`self`/`&self`/`&mut self`) consulted by object-safety
// checking.
type Param struct {
	Name       string
	Type       Type
	IsSelf     bool
	SelfByRef  bool
	SelfByMut  bool
}

// Generic is a type or const generic parameter declaration, with optional
// trait bounds (`T: Display + Clone`).
type Generic struct {
	Name     string
	IsConst  bool // const generic, e.g. `const N: usize`
	Bounds   []string
}

// Function declares a named function (or a trait method signature/default,
// or an impl method, reused across all three as an Item).
type Function struct {
	base
	Name        string
	Generics    []Generic
	Params      []Param
	Return      Type // nil means inferred/unit
	Effects     []string
	Body        *Block // nil for trait method signatures with no default
	IsPure      bool
	IsComptime  bool
}

func NewFunction(span diag.Span, name string, generics []Generic, params []Param, ret Type, effects []string, body *Block, pure bool) *Function {
	return &Function{base: NewBase(span), Name: name, Generics: generics, Params: params, Return: ret, Effects: effects, Body: body, IsPure: pure}
}

// Field is a named, typed struct field.
type Field struct {
	Name string
	Type Type
}

// StructDecl declares a struct type.
type StructDecl struct {
	base
	Name     string
	Generics []Generic
	Fields   []Field
}

func NewStructDecl(span diag.Span, name string, generics []Generic, fields []Field) *StructDecl {
	return &StructDecl{base: NewBase(span), Name: name, Generics: generics, Fields: fields}
}

// EnumVariant is a single constructor of an enum.
type EnumVariant struct {
	Name   string
	Fields []Field // empty for unit variants; positional fields use "0","1",...
}

// EnumDecl declares a sum type.
type EnumDecl struct {
	base
	Name     string
	Generics []Generic
	Variants []EnumVariant
}

func NewEnumDecl(span diag.Span, name string, generics []Generic, variants []EnumVariant) *EnumDecl {
	return &EnumDecl{base: NewBase(span), Name: name, Generics: generics, Variants: variants}
}

// TraitDecl declares a trait: a set of method signatures (with optional
// default bodies) and supertrait bounds.
type TraitDecl struct {
	base
	Name        string
	Generics    []Generic
	SuperTraits []string
	RequireSized bool
	Methods     []*Function
}

func NewTraitDecl(span diag.Span, name string, generics []Generic, superTraits []string, methods []*Function) *TraitDecl {
	return &TraitDecl{base: NewBase(span), Name: name, Generics: generics, SuperTraits: superTraits, Methods: methods}
}

// ImplDecl implements a trait for a type, or declares an inherent impl when
// Trait is empty. Negative (`!Trait for T`) impls set Negative.
type ImplDecl struct {
	base
	Generics []Generic
	Trait    string // empty for inherent impls
	TraitGenerics []Type
	Negative bool
	ForType  Type
	Methods  []*Function
}

func NewImplDecl(span diag.Span, generics []Generic, trait string, negative bool, forType Type, methods []*Function) *ImplDecl {
	return &ImplDecl{base: NewBase(span), Generics: generics, Trait: trait, Negative: negative, ForType: forType, Methods: methods}
}

// TypeAlias declares `type Name<Generics> = Type`.
type TypeAlias struct {
	base
	Name     string
	Generics []Generic
	Type     Type
}

func NewTypeAlias(span diag.Span, name string, generics []Generic, typ Type) *TypeAlias {
	return &TypeAlias{base: NewBase(span), Name: name, Generics: generics, Type: typ}
}

// ConstDecl declares a module-level constant, evaluable at comptime.
type ConstDecl struct {
	base
	Name  string
	Type  Type
	Value Expr
}

func NewConstDecl(span diag.Span, name string, typ Type, value Expr) *ConstDecl {
	return &ConstDecl{base: NewBase(span), Name: name, Type: typ, Value: value}
}

// GlobalDecl declares a mutable module-level variable.
type GlobalDecl struct {
	base
	Name    string
	Type    Type
	Value   Expr
	Mutable bool
}

func NewGlobalDecl(span diag.Span, name string, typ Type, value Expr, mutable bool) *GlobalDecl {
	return &GlobalDecl{base: NewBase(span), Name: name, Type: typ, Value: value, Mutable: mutable}
}

// ModuleDecl is a nested inline submodule (`module foo { ... }`).
type ModuleDecl struct {
	base
	Name  string
	Items []Item
}

func NewModuleDecl(span diag.Span, name string, items []Item) *ModuleDecl {
	return &ModuleDecl{base: NewBase(span), Name: name, Items: items}
}

// MacroDef declares a macro. The body is kept as an opaque token span; macro
// expansion (a separate pass run before type checking) is
// responsible for interpreting it.
type MacroDef struct {
	base
	Name   string
	Params []string
	Body   diag.Span
}

func NewMacroDef(span diag.Span, name string, params []string, body diag.Span) *MacroDef {
	return &MacroDef{base: NewBase(span), Name: name, Params: params, Body: body}
}
