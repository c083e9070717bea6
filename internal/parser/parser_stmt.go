package parser

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/lexer"
)

// parseStmt parses one statement inside a block. The second return value
// reports whether the statement is actually the block's tail expression
// (an ExprStmt with no trailing semicolon, immediately followed by the
// closing brace) — the caller unwraps it into Block.Tail rather than
// appending it to Stmts.
func (p *Parser) parseStmt() (ast.Stmt, bool) {
	switch p.curToken.Type {
	case lexer.LET:
		return p.parseLetStmt(), false
	case lexer.RETURN:
		return p.parseReturnStmt(), false
	case lexer.BREAK:
		return p.parseBreakStmt(), false
	case lexer.CONTINUE:
		return p.parseContinueStmt(), false
	case lexer.DEFER:
		return p.parseDeferStmt(), false
	default:
		start := p.curPos()
		expr := p.parseExpression(0)
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			return ast.NewExprStmt(p.spanFrom(start), expr), false
		}
		if p.peekTokenIs(lexer.RBRACE) {
			return ast.NewExprStmt(p.spanFrom(start), expr), true
		}
		return ast.NewExprStmt(p.spanFrom(start), expr), false
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.curPos()
	p.nextToken() // past 'let'
	mutable := false
	if p.curTokenIs(lexer.MUT) {
		mutable = true
		p.nextToken()
	}
	pattern := p.parsePattern()

	var typ ast.Type
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		typ = p.parseType()
	}

	if !p.expectPeek(lexer.ASSIGN) {
		return ast.NewLetStmt(p.spanFrom(start), pattern, typ, ast.NewExprError(p.curPos()), mutable)
	}
	p.nextToken()
	value := p.parseExpression(0)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewLetStmt(p.spanFrom(start), pattern, typ, value, mutable)
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.curPos()
	if p.peekTokenIs(lexer.SEMICOLON) || p.peekTokenIs(lexer.RBRACE) {
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
		}
		return ast.NewReturnStmt(p.spanFrom(start), nil)
	}
	p.nextToken()
	value := p.parseExpression(0)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewReturnStmt(p.spanFrom(start), value)
}

func (p *Parser) parseBreakStmt() ast.Stmt {
	start := p.curPos()
	var value ast.Expr
	if !p.peekTokenIs(lexer.SEMICOLON) && !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		value = p.parseExpression(0)
	}
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewBreakStmt(p.spanFrom(start), "", value)
}

func (p *Parser) parseContinueStmt() ast.Stmt {
	start := p.curPos()
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewContinueStmt(p.spanFrom(start), "")
}

func (p *Parser) parseDeferStmt() ast.Stmt {
	start := p.curPos()
	p.nextToken()
	value := p.parseExpression(0)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return ast.NewDeferStmt(p.spanFrom(start), value)
}
