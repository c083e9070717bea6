package parser

import (
	"strconv"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/lexer"
)

// parseItem dispatches on the current token to parse one top-level (or
// nested-module) declaration.
func (p *Parser) parseItem() ast.Item {
	switch p.curToken.Type {
	case lexer.PURE:
		p.nextToken() // land on 'fn'
		return p.parseFunctionDecl(true)
	case lexer.FN:
		return p.parseFunctionDecl(false)
	case lexer.STRUCT:
		return p.parseStructDecl()
	case lexer.ENUM:
		return p.parseEnumDecl()
	case lexer.TRAIT:
		return p.parseTraitDecl()
	case lexer.IMPL:
		return p.parseImplDecl()
	case lexer.TYPE:
		return p.parseTypeAliasDecl()
	case lexer.CONST:
		return p.parseConstDecl()
	case lexer.GLOBAL:
		return p.parseGlobalDecl()
	case lexer.MODULE:
		return p.parseModuleDecl()
	case lexer.MACRO:
		return p.parseMacroDef()
	default:
		p.errorf(p.curPos(), diag.E010, "expected an item declaration, got %s", p.curToken.Type)
		return nil
	}
}

// parseFunctionDecl parses a function item, a trait method signature/
// default, or an impl method — all three reuse *ast.Function per the
// Item sum (ast.Function's doc comment). Entry requires curToken == FN.
func (p *Parser) parseFunctionDecl(pure bool) *ast.Function {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewFunction(p.spanFrom(start), "<error>", nil, nil, nil, nil, nil, pure)
	}
	name := p.curToken.Literal
	generics := p.parseGenericsOpt()

	if !p.expectPeek(lexer.LPAREN) {
		return ast.NewFunction(p.spanFrom(start), name, generics, nil, nil, nil, nil, pure)
	}
	params := p.parseParamList()

	var ret ast.Type
	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		ret = p.parseType()
	}

	effects := p.parseEffectsOpt()

	var body *ast.Block
	if p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		body = p.parseBlock()
	} else if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}

	return ast.NewFunction(p.spanFrom(start), name, generics, params, ret, effects, body, pure)
}

// parseGenericsOpt parses an optional `<T, const N: usize, U: Bound + Bound>`
// clause. Entry/exit: curToken unchanged unless a clause was present, in
// which case curToken ends on the closing '>'.
func (p *Parser) parseGenericsOpt() []ast.Generic {
	if !p.peekTokenIs(lexer.LT) {
		return nil
	}
	p.nextToken() // '<'
	p.nextToken()
	var generics []ast.Generic
	for !p.curTokenIs(lexer.GT) && !p.curTokenIs(lexer.EOF) {
		isConst := false
		if p.curTokenIs(lexer.CONST) {
			isConst = true
			p.nextToken()
		}
		name := p.curToken.Literal
		var bounds []string
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			bounds = append(bounds, p.curToken.Literal)
			for p.peekTokenIs(lexer.PLUS) {
				p.nextToken()
				p.nextToken()
				bounds = append(bounds, p.curToken.Literal)
			}
		}
		generics = append(generics, ast.Generic{Name: name, IsConst: isConst, Bounds: bounds})
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return generics
}

// parseParamList parses a parenthesized parameter list. Entry requires
// curToken == LPAREN; exit leaves curToken == RPAREN.
func (p *Parser) parseParamList() []ast.Param {
	p.nextToken()
	var params []ast.Param
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		switch {
		case p.curTokenIs(lexer.AMP):
			p.nextToken()
			mut := false
			if p.curTokenIs(lexer.MUT) {
				mut = true
				p.nextToken()
			}
			if p.curTokenIs(lexer.SELF) {
				params = append(params, ast.Param{Name: "self", IsSelf: true, SelfByRef: true, SelfByMut: mut})
				p.nextToken()
			}
		case p.curTokenIs(lexer.SELF):
			params = append(params, ast.Param{Name: "self", IsSelf: true})
			p.nextToken()
		case p.curTokenIs(lexer.IDENT):
			name := p.curToken.Literal
			var typ ast.Type
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				typ = p.parseType()
			}
			params = append(params, ast.Param{Name: name, Type: typ})
			p.nextToken()
		default:
			p.errorf(p.curPos(), diag.E010, "unexpected token %s in parameter list", p.curToken.Type)
			p.nextToken()
		}
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return params
}

// parseEffectsOpt parses an optional `effects(io, alloc)` clause, written
// as a contextual keyword rather than a reserved word, so adding a new
// effect name never breaks existing identifiers.
func (p *Parser) parseEffectsOpt() []string {
	if !p.peekTokenIs(lexer.IDENT) || p.peekToken.Literal != "effects" {
		return nil
	}
	p.nextToken() // 'effects'
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	var effects []string
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.IDENT) {
			effects = append(effects, p.curToken.Literal)
		}
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return effects
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewStructDecl(p.spanFrom(start), "<error>", nil, nil)
	}
	name := p.curToken.Literal
	generics := p.parseGenericsOpt()
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewStructDecl(p.spanFrom(start), name, generics, nil)
	}
	p.nextToken()
	var fields []ast.Field
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.IDENT) {
			fname := p.curToken.Literal
			if !p.expectPeek(lexer.COLON) {
				p.nextToken()
				continue
			}
			p.nextToken()
			ftyp := p.parseType()
			fields = append(fields, ast.Field{Name: fname, Type: ftyp})
			p.nextToken()
			if p.curTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		} else {
			p.nextToken()
		}
	}
	return ast.NewStructDecl(p.spanFrom(start), name, generics, fields)
}

func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewEnumDecl(p.spanFrom(start), "<error>", nil, nil)
	}
	name := p.curToken.Literal
	generics := p.parseGenericsOpt()
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewEnumDecl(p.spanFrom(start), name, generics, nil)
	}
	p.nextToken()
	var variants []ast.EnumVariant
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if !p.curTokenIs(lexer.IDENT) {
			p.nextToken()
			continue
		}
		vname := p.curToken.Literal
		var fields []ast.Field
		switch {
		case p.peekTokenIs(lexer.LPAREN):
			p.nextToken()
			p.nextToken()
			idx := 0
			for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
				ftyp := p.parseType()
				fields = append(fields, ast.Field{Name: strconv.Itoa(idx), Type: ftyp})
				idx++
				p.nextToken()
				if p.curTokenIs(lexer.COMMA) {
					p.nextToken()
				}
			}
		case p.peekTokenIs(lexer.LBRACE):
			p.nextToken()
			p.nextToken()
			for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
				fname := p.curToken.Literal
				if !p.expectPeek(lexer.COLON) {
					p.nextToken()
					continue
				}
				p.nextToken()
				ftyp := p.parseType()
				fields = append(fields, ast.Field{Name: fname, Type: ftyp})
				p.nextToken()
				if p.curTokenIs(lexer.COMMA) {
					p.nextToken()
				}
			}
		}
		variants = append(variants, ast.EnumVariant{Name: vname, Fields: fields})
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return ast.NewEnumDecl(p.spanFrom(start), name, generics, variants)
}

func (p *Parser) parseTraitDecl() *ast.TraitDecl {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewTraitDecl(p.spanFrom(start), "<error>", nil, nil, nil)
	}
	name := p.curToken.Literal
	generics := p.parseGenericsOpt()

	var superTraits []string
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		superTraits = append(superTraits, p.curToken.Literal)
		for p.peekTokenIs(lexer.PLUS) {
			p.nextToken()
			p.nextToken()
			superTraits = append(superTraits, p.curToken.Literal)
		}
	}

	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewTraitDecl(p.spanFrom(start), name, generics, superTraits, nil)
	}
	p.nextToken()
	var methods []*ast.Function
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		switch {
		case p.curTokenIs(lexer.PURE):
			p.nextToken()
			methods = append(methods, p.parseFunctionDecl(true))
		case p.curTokenIs(lexer.FN):
			methods = append(methods, p.parseFunctionDecl(false))
		default:
			p.nextToken()
			continue
		}
		p.nextToken()
	}
	return ast.NewTraitDecl(p.spanFrom(start), name, generics, superTraits, methods)
}

// parseImplDecl parses `impl<G> Trait<Args> for Type { ... }`,
// `impl<G> Type { ... }` (inherent), or `impl<G> !Trait for Type { ... }`
// (a negative impl, ruling the pair out of specialization resolution).
func (p *Parser) parseImplDecl() *ast.ImplDecl {
	start := p.curPos()
	generics := p.parseGenericsOpt()

	negative := false
	if p.peekTokenIs(lexer.NOT) || p.peekTokenIs(lexer.BANG) {
		p.nextToken()
		negative = true
	}
	p.nextToken()

	first := p.parseType()
	var traitName string
	var traitGenerics []ast.Type
	var forType ast.Type
	if nt, ok := first.(*ast.NamedType); ok && p.peekTokenIs(lexer.FOR) {
		traitName = nt.Name
		traitGenerics = nt.Args
		p.nextToken() // 'for'
		p.nextToken()
		forType = p.parseType()
	} else {
		forType = first
	}

	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewImplDecl(p.spanFrom(start), generics, traitName, negative, forType, nil)
	}
	p.nextToken()
	var methods []*ast.Function
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		switch {
		case p.curTokenIs(lexer.PURE):
			p.nextToken()
			methods = append(methods, p.parseFunctionDecl(true))
		case p.curTokenIs(lexer.FN):
			methods = append(methods, p.parseFunctionDecl(false))
		default:
			p.nextToken()
			continue
		}
		p.nextToken()
	}
	decl := ast.NewImplDecl(p.spanFrom(start), generics, traitName, negative, forType, methods)
	decl.TraitGenerics = traitGenerics
	return decl
}

func (p *Parser) parseTypeAliasDecl() *ast.TypeAlias {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewTypeAlias(p.spanFrom(start), "<error>", nil, ast.NewUnitType(p.curPos()))
	}
	name := p.curToken.Literal
	generics := p.parseGenericsOpt()
	if !p.expectPeek(lexer.ASSIGN) {
		return ast.NewTypeAlias(p.spanFrom(start), name, generics, ast.NewUnitType(p.curPos()))
	}
	p.nextToken()
	typ := p.parseType()
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewTypeAlias(p.spanFrom(start), name, generics, typ)
}

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewConstDecl(p.spanFrom(start), "<error>", nil, ast.NewExprError(p.curPos()))
	}
	name := p.curToken.Literal
	var typ ast.Type
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		typ = p.parseType()
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return ast.NewConstDecl(p.spanFrom(start), name, typ, ast.NewExprError(p.curPos()))
	}
	p.nextToken()
	value := p.parseExpression(0)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewConstDecl(p.spanFrom(start), name, typ, value)
}

func (p *Parser) parseGlobalDecl() *ast.GlobalDecl {
	start := p.curPos()
	mutable := false
	if p.peekTokenIs(lexer.MUT) {
		p.nextToken()
		mutable = true
	}
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewGlobalDecl(p.spanFrom(start), "<error>", nil, ast.NewExprError(p.curPos()), mutable)
	}
	name := p.curToken.Literal
	var typ ast.Type
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		typ = p.parseType()
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return ast.NewGlobalDecl(p.spanFrom(start), name, typ, ast.NewExprError(p.curPos()), mutable)
	}
	p.nextToken()
	value := p.parseExpression(0)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewGlobalDecl(p.spanFrom(start), name, typ, value, mutable)
}

func (p *Parser) parseModuleDecl() *ast.ModuleDecl {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewModuleDecl(p.spanFrom(start), "<error>", nil)
	}
	name := p.curToken.Literal
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewModuleDecl(p.spanFrom(start), name, nil)
	}
	p.nextToken()
	var items []ast.Item
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		item := p.parseItem()
		if item != nil {
			items = append(items, item)
		}
		p.nextToken()
	}
	return ast.NewModuleDecl(p.spanFrom(start), name, items)
}

// parseMacroDef parses `macro name(params) { ... }`, keeping the body as
// an opaque token span: expansion is a separate pass that re-lexes the
// span rather than the parser interpreting it here.
func (p *Parser) parseMacroDef() *ast.MacroDef {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewMacroDef(p.spanFrom(start), "<error>", nil, diag.Span{File: p.file})
	}
	name := p.curToken.Literal

	var params []string
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		p.nextToken()
		for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
			if p.curTokenIs(lexer.IDENT) {
				params = append(params, p.curToken.Literal)
			}
			p.nextToken()
			if p.curTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
	}

	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewMacroDef(p.spanFrom(start), name, params, diag.Span{File: p.file})
	}
	bodyStart := p.curPos()
	depth := 1
	p.nextToken()
	for depth > 0 && !p.curTokenIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
		}
		if depth == 0 {
			break
		}
		p.nextToken()
	}
	return ast.NewMacroDef(p.spanFrom(start), name, params, p.spanFrom(bodyStart))
}
