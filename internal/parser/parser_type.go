package parser

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/lexer"
)

// parseType parses one surface type annotation (ast.Type), guarded by the
// same recursion counter as parseExpression since a type annotation can
// nest arbitrarily deep (`[[[...]]]`, `Option<Option<...>>`).
func (p *Parser) parseType() ast.Type {
	p.enterDepth()
	defer p.leaveDepth()

	start := p.curPos()
	switch p.curToken.Type {
	case lexer.LPAREN:
		p.nextToken()
		if p.curTokenIs(lexer.RPAREN) {
			return ast.NewUnitType(p.spanFrom(start))
		}
		elems := []ast.Type{p.parseType()}
		for p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
			elems = append(elems, p.parseType())
		}
		p.expectPeek(lexer.RPAREN)
		if len(elems) == 1 {
			return elems[0]
		}
		return ast.NewTupleType(p.spanFrom(start), elems)

	case lexer.LBRACKET:
		p.nextToken()
		elem := p.parseType()
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			p.nextToken()
			size := p.parseExpression(0)
			p.expectPeek(lexer.RBRACKET)
			return ast.NewConstArrayType(p.spanFrom(start), elem, size)
		}
		p.expectPeek(lexer.RBRACKET)
		return p.parseTypePostfix(ast.NewArrayType(p.spanFrom(start), elem), start)

	case lexer.LBRACE:
		p.nextToken()
		key := p.parseType()
		p.expectPeek(lexer.COLON)
		p.nextToken()
		val := p.parseType()
		p.expectPeek(lexer.RBRACE)
		return ast.NewMapType(p.spanFrom(start), key, val)

	case lexer.AMP:
		p.nextToken()
		mut := false
		if p.curTokenIs(lexer.MUT) {
			mut = true
			p.nextToken()
		}
		if p.curTokenIs(lexer.LBRACKET) {
			p.nextToken()
			elem := p.parseType()
			p.expectPeek(lexer.RBRACKET)
			return p.parseTypePostfix(ast.NewSliceType(p.spanFrom(start), elem), start)
		}
		elem := p.parseType()
		if mut {
			return p.parseTypePostfix(ast.NewRefMutType(p.spanFrom(start), elem), start)
		}
		return p.parseTypePostfix(ast.NewRefType(p.spanFrom(start), elem), start)

	case lexer.STAR:
		p.nextToken()
		mut := false
		if p.curTokenIs(lexer.MUT) {
			mut = true
			p.nextToken()
		}
		elem := p.parseType()
		return ast.NewPointerType(p.spanFrom(start), elem, mut)

	case lexer.DYN:
		p.nextToken()
		name := p.curToken.Literal
		var generics []ast.Type
		if p.peekTokenIs(lexer.LT) {
			generics = p.parseTypeArgs()
		}
		return p.parseTypePostfix(ast.NewDynTraitType(p.spanFrom(start), name, generics), start)

	case lexer.IMPL:
		p.nextToken()
		name := p.curToken.Literal
		var generics []ast.Type
		if p.peekTokenIs(lexer.LT) {
			generics = p.parseTypeArgs()
		}
		return p.parseTypePostfix(ast.NewImplTraitType(p.spanFrom(start), name, generics), start)

	case lexer.FN:
		p.expectPeek(lexer.LPAREN)
		var params []ast.Type
		if !p.peekTokenIs(lexer.RPAREN) {
			p.nextToken()
			params = append(params, p.parseType())
			for p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
				p.nextToken()
				params = append(params, p.parseType())
			}
		}
		p.expectPeek(lexer.RPAREN)
		var ret ast.Type = ast.NewUnitType(p.curPos())
		if p.peekTokenIs(lexer.ARROW) {
			p.nextToken()
			p.nextToken()
			ret = p.parseType()
		}
		return ast.NewFnType(p.spanFrom(start), params, ret)

	case lexer.IDENT, lexer.SELF_TYPE:
		name := p.curToken.Literal
		var args []ast.Type
		if p.peekTokenIs(lexer.LT) {
			args = p.parseTypeArgs()
		}
		return p.parseTypePostfix(ast.NewNamedType(p.spanFrom(start), name, args), start)

	default:
		p.errorf(p.curPos(), diag.E010, "expected a type, got %s", p.curToken.Type)
		return ast.NewNamedType(p.curPos(), "<error>", nil)
	}
}

// parseTypePostfix absorbs trailing `?` (Optional sugar) and `! E` (Result
// sugar), which can chain: `T? ! E`.
func (p *Parser) parseTypePostfix(t ast.Type, start diag.Span) ast.Type {
	for {
		if p.peekTokenIs(lexer.QUESTION) {
			p.nextToken()
			t = ast.NewOptionalType(p.spanFrom(start), t)
			continue
		}
		if p.peekTokenIs(lexer.BANG) {
			p.nextToken()
			p.nextToken()
			errType := p.parseType()
			t = ast.NewResultType(p.spanFrom(start), t, errType)
			continue
		}
		break
	}
	return t
}

// parseTypeArgs parses a `<T, U, ...>` generic argument list. A closing
// `>>` is lexed as a single SHR token rather than two GT tokens, and no
// token-splice splits it (the same ambiguity C++/Rust template parsers
// historically had): the inner list of `Outer<Inner<T>>` consumes the
// SHR whole, so the outer list finds no closing `>` and reports E010.
func (p *Parser) parseTypeArgs() []ast.Type {
	p.nextToken() // consume '<'
	p.nextToken()
	args := []ast.Type{p.parseType()}
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseType())
	}
	if p.peekTokenIs(lexer.GT) || p.peekTokenIs(lexer.SHR) {
		p.nextToken()
	} else {
		p.peekError(">")
	}
	return args
}
