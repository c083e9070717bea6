package ast

import "github.com/vaislang/vais/internal/diag"

// Pattern is the sum type of patterns usable in `let` bindings, match arms,
// and function parameters: Wildcard | Ident | Lit | Tuple | Struct | Enum |
// Range.
type Pattern interface {
	Node
	patternNode()
}

func (*WildcardPattern) patternNode() {}
func (*IdentPattern) patternNode()    {}
func (*LitPattern) patternNode()      {}
func (*TuplePattern) patternNode()    {}
func (*StructPattern) patternNode()   {}
func (*EnumPattern) patternNode()     {}
func (*RangePattern) patternNode()    {}

// WildcardPattern is `_`, matching anything and binding nothing.
type WildcardPattern struct {
	base
}

func NewWildcardPattern(span diag.Span) *WildcardPattern { return &WildcardPattern{base: NewBase(span)} }

// IdentPattern binds the matched value to a name, optionally by reference
// (`ref x`) — consulted by usage-discipline checking for linear/affine
// values.
type IdentPattern struct {
	base
	Name   string
	ByRef  bool
	SubPat Pattern // `x @ pattern`, nil if absent
}

func NewIdentPattern(span diag.Span, name string, byRef bool, subPat Pattern) *IdentPattern {
	return &IdentPattern{base: NewBase(span), Name: name, ByRef: byRef, SubPat: subPat}
}

// LitPattern matches a literal value exactly.
type LitPattern struct {
	base
	Value Expr // IntLit | FloatLit | BoolLit | StringLit
}

func NewLitPattern(span diag.Span, value Expr) *LitPattern { return &LitPattern{base: NewBase(span), Value: value} }

type TuplePattern struct {
	base
	Elems []Pattern
}

func NewTuplePattern(span diag.Span, elems []Pattern) *TuplePattern {
	return &TuplePattern{base: NewBase(span), Elems: elems}
}

// StructFieldPattern destructures one named field of a struct pattern.
type StructFieldPattern struct {
	Name    string
	Pattern Pattern
}

// StructPattern destructures a struct, e.g. `Point { x, y: 0 }`. Rest
// allows trailing fields to be ignored (`Point { x, .. }`).
type StructPattern struct {
	base
	TypeName string
	Fields   []StructFieldPattern
	Rest     bool
}

func NewStructPattern(span diag.Span, typeName string, fields []StructFieldPattern, rest bool) *StructPattern {
	return &StructPattern{base: NewBase(span), TypeName: typeName, Fields: fields, Rest: rest}
}

// EnumPattern matches a specific enum variant, destructuring its fields.
type EnumPattern struct {
	base
	TypeName string
	Variant  string
	Fields   []Pattern // positional; empty for unit variants
}

func NewEnumPattern(span diag.Span, typeName, variant string, fields []Pattern) *EnumPattern {
	return &EnumPattern{base: NewBase(span), TypeName: typeName, Variant: variant, Fields: fields}
}

// RangePattern matches a value falling within [Start, End] (or [Start, End)
// when Inclusive is false), e.g. `1..=10` or `'a'..'z'`.
type RangePattern struct {
	base
	Start, End Expr
	Inclusive  bool
}

func NewRangePattern(span diag.Span, start, end Expr, inclusive bool) *RangePattern {
	return &RangePattern{base: NewBase(span), Start: start, End: end, Inclusive: inclusive}
}
