package parser

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/lexer"
)

// parsePattern parses one pattern, as used in `let` bindings and match
// arms; parseParamList reads parameter names itself and does not call it.
func (p *Parser) parsePattern() ast.Pattern {
	p.enterDepth()
	defer p.leaveDepth()

	start := p.curPos()
	switch p.curToken.Type {
	case lexer.IDENT:
		if p.curToken.Literal == "_" {
			return ast.NewWildcardPattern(start)
		}
		return p.parseIdentLikePattern(start)

	case lexer.REF:
		p.nextToken()
		inner := p.parsePattern()
		if ip, ok := inner.(*ast.IdentPattern); ok {
			return ast.NewIdentPattern(p.spanFrom(start), ip.Name, true, ip.SubPat)
		}
		return inner

	case lexer.LPAREN:
		p.nextToken()
		var elems []ast.Pattern
		for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
			elems = append(elems, p.parsePattern())
			p.nextToken()
			if p.curTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		return ast.NewTuplePattern(p.spanFrom(start), elems)

	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.MINUS, lexer.CHAR:
		lit := p.parseExpression(9)
		if p.peekTokenIs(lexer.DOTDOT) || p.peekTokenIs(lexer.DOTDOTEQ) {
			inclusive := p.peekTokenIs(lexer.DOTDOTEQ)
			p.nextToken()
			p.nextToken()
			end := p.parseExpression(9)
			return ast.NewRangePattern(p.spanFrom(start), lit, end, inclusive)
		}
		return ast.NewLitPattern(p.spanFrom(start), lit)

	default:
		p.errorf(p.curPos(), diag.E010, "expected a pattern, got %s", p.curToken.Type)
		return ast.NewWildcardPattern(p.curPos())
	}
}

// parseIdentLikePattern handles everything that starts with a bare
// identifier: a plain binding, an `x @ pattern` sub-binding, an enum
// variant (`TypeName::Variant(...)` or a bare `Variant(...)`), or a struct
// pattern (`TypeName { field, .. }`).
func (p *Parser) parseIdentLikePattern(start diag.Span) ast.Pattern {
	name := p.curToken.Literal

	if p.peekTokenIs(lexer.DCOLON) {
		p.nextToken() // '::'
		p.nextToken() // variant name
		variant := p.curToken.Literal
		var fields []ast.Pattern
		if p.peekTokenIs(lexer.LPAREN) {
			p.nextToken()
			p.nextToken()
			for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
				fields = append(fields, p.parsePattern())
				p.nextToken()
				if p.curTokenIs(lexer.COMMA) {
					p.nextToken()
				}
			}
		}
		return ast.NewEnumPattern(p.spanFrom(start), name, variant, fields)
	}

	if p.peekTokenIs(lexer.LBRACE) && name != "" && name[0] >= 'A' && name[0] <= 'Z' {
		p.nextToken() // '{'
		p.nextToken()
		var fields []ast.StructFieldPattern
		rest := false
		for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
			if p.curTokenIs(lexer.DOTDOT) {
				rest = true
				p.nextToken()
				break
			}
			fname := p.curToken.Literal
			var fpat ast.Pattern
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				fpat = p.parsePattern()
			} else {
				fpat = ast.NewIdentPattern(p.curPos(), fname, false, nil)
			}
			fields = append(fields, ast.StructFieldPattern{Name: fname, Pattern: fpat})
			p.nextToken()
			if p.curTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		return ast.NewStructPattern(p.spanFrom(start), name, fields, rest)
	}

	if p.peekTokenIs(lexer.LPAREN) && name != "" && name[0] >= 'A' && name[0] <= 'Z' {
		p.nextToken()
		p.nextToken()
		var fields []ast.Pattern
		for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
			fields = append(fields, p.parsePattern())
			p.nextToken()
			if p.curTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		return ast.NewEnumPattern(p.spanFrom(start), name, name, fields)
	}

	if p.peekTokenIs(lexer.AT) {
		p.nextToken() // '@'
		p.nextToken()
		sub := p.parsePattern()
		return ast.NewIdentPattern(p.spanFrom(start), name, false, sub)
	}

	return ast.NewIdentPattern(p.spanFrom(start), name, false, nil)
}
